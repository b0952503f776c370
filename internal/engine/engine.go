// Package engine evaluates the record stream and decides when to alert.
//
// DESIGN: One goroutine (the tail loop) calls HandleLine for every log line,
// in stream order. The rolling window, pool monitor and cooldown gate are
// owned by that loop and never touched from anywhere else, so the hot path
// needs no locks. Notification delivery runs on a spawned goroutine per fired
// alert, reading only an immutable Alert value; cooldown was already spent at
// decision time, so a dead webhook degrades to drop-and-log. The maintenance
// flag and the Status snapshot are the only state shared with other
// goroutines, and each is individually synchronized.
package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/poolwatch/poolwatch/internal/alert"
	"github.com/poolwatch/poolwatch/internal/history"
	"github.com/poolwatch/poolwatch/internal/monitoring"
	"github.com/poolwatch/poolwatch/internal/notify"
	"github.com/poolwatch/poolwatch/internal/pool"
	"github.com/poolwatch/poolwatch/internal/record"
	"github.com/poolwatch/poolwatch/internal/window"
)

// Options configures the engine.
type Options struct {
	ErrorRateThreshold float64 // percent; the rate must exceed this strictly
	WindowSize         int
	MinSamples         int // records required before the rate is evaluated
	Cooldown           time.Duration
	MaintenanceMode    bool
	SkipRequests       []string // request substrings that mark health checks
}

// Status is a snapshot of the engine for the ops endpoint.
type Status struct {
	CurrentPool        string     `json:"current_pool"`
	LastTransitionAt   *time.Time `json:"last_transition_at,omitempty"`
	WindowFill         int        `json:"window_fill"`
	WindowCapacity     int        `json:"window_capacity"`
	ErrorRatePercent   float64    `json:"error_rate_percent"`
	MaintenanceMode    bool       `json:"maintenance_mode"`
	LastFailoverAlert  *time.Time `json:"last_failover_alert,omitempty"`
	LastErrorRateAlert *time.Time `json:"last_error_rate_alert,omitempty"`
}

// Engine wires the parser, window, pool monitor, dedup gate and notifier.
type Engine struct {
	opts     Options
	window   *window.Rolling
	monitor  *pool.Monitor
	deduper  *alert.Deduper
	notifier notify.Notifier
	hist     *history.Store // nil disables persistence
	metrics  *monitoring.Metrics

	maintenance atomic.Bool
	now         func() time.Time
	inflight    sync.WaitGroup

	mu     sync.Mutex
	status Status
}

// New creates an engine. hist may be nil; metrics must not be.
func New(opts Options, notifier notify.Notifier, hist *history.Store, metrics *monitoring.Metrics) *Engine {
	e := &Engine{
		opts:     opts,
		window:   window.NewRolling(opts.WindowSize),
		monitor:  pool.NewMonitor(),
		deduper:  alert.NewDeduper(opts.Cooldown),
		notifier: notifier,
		hist:     hist,
		metrics:  metrics,
		now:      time.Now,
	}
	e.maintenance.Store(opts.MaintenanceMode)
	e.status = Status{
		WindowCapacity:  e.window.Cap(),
		MaintenanceMode: opts.MaintenanceMode,
	}
	return e
}

// SetMaintenance flips the maintenance flag. Safe to call from any goroutine;
// takes effect on the next evaluation.
func (e *Engine) SetMaintenance(on bool) {
	if e.maintenance.Swap(on) != on {
		log.Info().Bool("maintenance_mode", on).Msg("maintenance mode changed")
	}
}

// Maintenance reports whether failover alerts are currently suppressed.
func (e *Engine) Maintenance() bool {
	return e.maintenance.Load()
}

// HandleLine processes one raw log line: parse, update window and pool state,
// then evaluate alert conditions. Unparseable lines are counted and skipped.
func (e *Engine) HandleLine(ctx context.Context, line string) {
	e.metrics.LinesRead.Inc()

	o, err := record.Parse(line)
	if err != nil {
		e.metrics.ParseErrors.Inc()
		log.Debug().Err(err).Msg("skipping unparseable line")
		return
	}

	if e.isHealthCheck(o.Request) {
		e.metrics.HealthSkipped.Inc()
		return
	}

	// State updates commit before any alert evaluation for this record.
	e.window.Record(o.IsError())
	e.metrics.RecordsTracked.Inc()

	known := e.monitor.Current() != ""
	if tr, changed := e.monitor.Observe(o.Pool, o.Time); changed {
		e.metrics.Failovers.Inc()
		log.Warn().Str("from", tr.From).Str("to", tr.To).Msg("failover observed")
		e.evaluateFailover(ctx, tr)
	} else if !known && e.monitor.Current() != "" {
		log.Info().Str("pool", o.Pool).Msg("initial pool observed")
	}

	e.evaluateErrorRate(ctx)
	e.updateStatus()
}

func (e *Engine) isHealthCheck(request string) bool {
	for _, s := range e.opts.SkipRequests {
		if s != "" && strings.Contains(request, s) {
			return true
		}
	}
	return false
}

// evaluateFailover runs a pool transition through the maintenance gate and
// the cooldown gate. Maintenance sits upstream: a suppressed transition never
// touches cooldown state.
func (e *Engine) evaluateFailover(ctx context.Context, tr pool.Transition) {
	if e.maintenance.Load() {
		e.metrics.AlertsSuppressed.WithLabelValues(string(alert.KindFailover), "maintenance").Inc()
		log.Info().Str("from", tr.From).Str("to", tr.To).Msg("maintenance mode active, suppressing failover alert")
		a := alert.NewFailover(tr.From, tr.To, tr.At)
		e.record(history.Entry{
			AlertID: a.ID,
			Kind:    string(a.Kind),
			Summary: a.Summary,
			Outcome: history.OutcomeSuppressed,
			Reason:  "maintenance",
			At:      e.now(),
		})
		return
	}

	now := e.now()
	if !e.deduper.ShouldFire(alert.KindFailover, now) {
		e.metrics.AlertsSuppressed.WithLabelValues(string(alert.KindFailover), "cooldown").Inc()
		log.Debug().Str("from", tr.From).Str("to", tr.To).Msg("failover alert within cooldown")
		return
	}
	e.deduper.MarkFired(alert.KindFailover, now)
	e.dispatch(ctx, alert.NewFailover(tr.From, tr.To, now))
}

// evaluateErrorRate fires when the window rate strictly exceeds the threshold
// and at least MinSamples records have been observed.
func (e *Engine) evaluateErrorRate(ctx context.Context) {
	n := e.window.Len()
	rate := e.window.ErrorRatePercent()
	e.metrics.ErrorRatePercent.Set(rate)
	e.metrics.WindowFill.Set(float64(n))

	if n < e.opts.MinSamples {
		return
	}
	if rate <= e.opts.ErrorRateThreshold {
		return
	}

	now := e.now()
	if !e.deduper.ShouldFire(alert.KindHighErrorRate, now) {
		e.metrics.AlertsSuppressed.WithLabelValues(string(alert.KindHighErrorRate), "cooldown").Inc()
		return
	}
	e.deduper.MarkFired(alert.KindHighErrorRate, now)
	e.dispatch(ctx, alert.NewHighErrorRate(
		rate, e.opts.ErrorRateThreshold, n, e.window.ErrorCount(), e.monitor.Current(), now))
}

// dispatch hands the alert to the notifier on its own goroutine so delivery
// (and its retries) never blocks the stream loop.
func (e *Engine) dispatch(ctx context.Context, a alert.Alert) {
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		if err := e.notifier.Send(ctx, a); err != nil {
			e.metrics.DeliveryFailures.Inc()
			log.Error().Err(err).Str("alert_id", a.ID).Str("kind", string(a.Kind)).Msg("alert delivery failed")
			e.record(history.Entry{
				AlertID: a.ID, Kind: string(a.Kind), Summary: a.Summary,
				Outcome: history.OutcomeFailed, Reason: err.Error(), At: a.At,
			})
			return
		}

		e.metrics.AlertsSent.WithLabelValues(string(a.Kind)).Inc()
		log.Info().Str("alert_id", a.ID).Str("kind", string(a.Kind)).Msg("alert sent")
		e.record(history.Entry{
			AlertID: a.ID, Kind: string(a.Kind), Summary: a.Summary,
			Outcome: history.OutcomeSent, At: a.At,
		})
	}()
}

// record appends to the audit store. Persistence failures are logged, never
// surfaced: the store is an audit trail, not a dependency.
func (e *Engine) record(entry history.Entry) {
	if e.hist == nil {
		return
	}
	if err := e.hist.Append(entry); err != nil {
		log.Error().Err(err).Msg("failed to persist alert history entry")
	}
}

func (e *Engine) updateStatus() {
	st := Status{
		CurrentPool:      e.monitor.Current(),
		WindowFill:       e.window.Len(),
		WindowCapacity:   e.window.Cap(),
		ErrorRatePercent: e.window.ErrorRatePercent(),
		MaintenanceMode:  e.maintenance.Load(),
	}
	if ps := e.monitor.State(); !ps.LastTransitionAt.IsZero() {
		at := ps.LastTransitionAt
		st.LastTransitionAt = &at
	}
	if last, ok := e.deduper.LastFired(alert.KindFailover); ok {
		st.LastFailoverAlert = &last
	}
	if last, ok := e.deduper.LastFired(alert.KindHighErrorRate); ok {
		st.LastErrorRateAlert = &last
	}

	e.mu.Lock()
	e.status = st
	e.mu.Unlock()
}

// Status returns the latest snapshot. Safe to call from any goroutine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.status
	st.MaintenanceMode = e.maintenance.Load()
	return st
}

// Wait blocks until in-flight deliveries finish or the timeout passes.
// Retries abandon themselves when the engine context is cancelled, so this is
// bounded by the notifier's backoff ceiling.
func (e *Engine) Wait(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn().Msg("shutdown: abandoning in-flight notifications")
	}
}
