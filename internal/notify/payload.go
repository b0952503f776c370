package notify

import (
	"github.com/tidwall/sjson"

	"github.com/poolwatch/poolwatch/internal/alert"
)

// Attachment colors, matching the receiver's failover/error convention.
const (
	colorFailover  = "#FFA500"
	colorErrorRate = "#FF0000"
	colorDefault   = "#808080"
)

// Payload renders the JSON body for one alert. The body carries the structured
// kind-specific fields plus a Slack-compatible attachment so the same webhook
// works for both plain receivers and Slack incoming webhooks.
func Payload(a alert.Alert) ([]byte, error) {
	body, err := sjson.Set("", "kind", string(a.Kind))
	if err != nil {
		return nil, err
	}
	body, _ = sjson.Set(body, "id", a.ID)
	body, _ = sjson.Set(body, "summary", a.Summary)
	body, _ = sjson.Set(body, "ts", a.At.Unix())

	switch a.Kind {
	case alert.KindFailover:
		body, _ = sjson.Set(body, "failover.from", a.FromPool)
		body, _ = sjson.Set(body, "failover.to", a.ToPool)
	case alert.KindHighErrorRate:
		body, _ = sjson.Set(body, "error_rate.rate_percent", a.RatePercent)
		body, _ = sjson.Set(body, "error_rate.threshold_percent", a.ThresholdPercent)
		body, _ = sjson.Set(body, "error_rate.window_size", a.WindowSize)
		body, _ = sjson.Set(body, "error_rate.error_count", a.ErrorCount)
		body, _ = sjson.Set(body, "error_rate.current_pool", a.CurrentPool)
	}

	body, _ = sjson.Set(body, "attachments.0.color", colorFor(a.Kind))
	body, _ = sjson.Set(body, "attachments.0.title", "Blue/Green Deployment Alert")
	body, _ = sjson.Set(body, "attachments.0.text", a.Summary)
	body, _ = sjson.Set(body, "attachments.0.footer", "poolwatch")
	body, _ = sjson.Set(body, "attachments.0.ts", a.At.Unix())

	return []byte(body), nil
}

func colorFor(kind alert.Kind) string {
	switch kind {
	case alert.KindFailover:
		return colorFailover
	case alert.KindHighErrorRate:
		return colorErrorRate
	default:
		return colorDefault
	}
}
