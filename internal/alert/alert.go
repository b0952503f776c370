// Package alert defines alert kinds and the per-kind cooldown gate.
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a category of alert. Cooldown state is tracked per kind.
type Kind string

const (
	// KindFailover fires when the serving pool changes.
	KindFailover Kind = "failover"
	// KindHighErrorRate fires when the rolling window error rate exceeds the
	// configured threshold.
	KindHighErrorRate Kind = "high_error_rate"
)

// Alert is one concrete notification candidate. The kind-specific fields are
// populated by the corresponding constructor and zero otherwise.
type Alert struct {
	ID      string
	Kind    Kind
	Summary string
	At      time.Time

	// Failover fields.
	FromPool string
	ToPool   string

	// High-error-rate fields.
	RatePercent      float64
	ThresholdPercent float64
	WindowSize       int
	ErrorCount       int
	CurrentPool      string
}

// NewFailover builds a failover alert for a pool transition.
func NewFailover(from, to string, at time.Time) Alert {
	return Alert{
		ID:       uuid.NewString(),
		Kind:     KindFailover,
		Summary:  fmt.Sprintf("failover detected: pool %s -> %s", from, to),
		At:       at,
		FromPool: from,
		ToPool:   to,
	}
}

// NewHighErrorRate builds a high-error-rate alert from the window state.
func NewHighErrorRate(ratePercent, thresholdPercent float64, windowSize, errorCount int, currentPool string, at time.Time) Alert {
	if currentPool == "" {
		currentPool = "unknown"
	}
	return Alert{
		ID:   uuid.NewString(),
		Kind: KindHighErrorRate,
		Summary: fmt.Sprintf("high error rate: %.2f%% over last %d requests (threshold %.2f%%, pool %s)",
			ratePercent, windowSize, thresholdPercent, currentPool),
		At:               at,
		RatePercent:      ratePercent,
		ThresholdPercent: thresholdPercent,
		WindowSize:       windowSize,
		ErrorCount:       errorCount,
		CurrentPool:      currentPool,
	}
}
