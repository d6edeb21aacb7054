package notify

import (
	"context"
	"time"

	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/market"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/observability/metrics"
)

// Sink shows a notification to the user.
type Sink interface {
	Deliver(ctx context.Context, req Request) error
}

// DispatchCenter is a Center that hands due notifications back for delivery.
type DispatchCenter interface {
	Center
	DueSource
}

// LogSink writes notifications to the log. It is the fallback when no desktop
// notification target is reachable.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, req Request) error {
	logger.Info("ALARM TRIGGERED", "alert", req.AlertID, "label", req.Body, "at", req.At.Format(time.RFC3339))
	return nil
}

type DispatcherOption func(*Dispatcher)

func WithDispatchClock(c clock.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = clock.Or(c) }
}

func WithDispatchInterval(iv time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if iv > 0 {
			d.interval = iv
		}
	}
}

func WithDispatchMetrics(m *metrics.AlertMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithDispatchPolicy gates fixed notifications on the market state at their
// trigger instant.
func WithDispatchPolicy(p market.Policy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// WithForeground defers to the in-app loop. While active reports true, due
// notifications are retired without reaching the sink because the loop has
// already played them.
func WithForeground(active func() bool) DispatcherOption {
	return func(d *Dispatcher) { d.foreground = active }
}

// OnDelivered registers fn to run once the last pending notification of an
// alert has been delivered. It is used to arm the following occurrence.
func OnDelivered(fn func(ctx context.Context, id models.AlertID)) DispatcherOption {
	return func(d *Dispatcher) { d.onDelivered = fn }
}

// Dispatcher polls a DispatchCenter and delivers due notifications to a Sink.
type Dispatcher struct {
	center      DispatchCenter
	sink        Sink
	clock       clock.Clock
	interval    time.Duration
	metrics     *metrics.AlertMetrics
	policy      market.Policy
	foreground  func() bool
	onDelivered func(ctx context.Context, id models.AlertID)
}

func NewDispatcher(center DispatchCenter, sink Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		center:   center,
		sink:     sink,
		clock:    clock.Real{},
		interval: time.Second,
		policy:   market.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sink == nil {
		d.sink = LogSink{}
	}
	return d
}

// Run dispatches until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchDue(ctx); err != nil {
				logger.Error("Failed to dispatch notifications", "error", err)
			}
		}
	}
}

// DispatchDue delivers everything due now and returns how many were delivered.
// Notifications held back by the market or retired in favour of the
// foreground loop are not counted but still let their alert re-arm.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	due, err := d.center.PopDue(ctx, d.clock.Now())
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	inForeground := d.foreground != nil && d.foreground()
	delivered := 0
	finished := make(map[models.AlertID]bool)
	for _, req := range due {
		finished[req.AlertID] = true
		if !d.policy.Allow(req.alert(), req.At) {
			logger.Info("Notification held back while market closed", "alert", req.AlertID, "label", req.Body)
			d.metrics.RecordSuppressed(ctx, "market-closed")
			continue
		}
		if inForeground {
			logger.Debug("Notification retired, foreground loop owns playback", "alert", req.AlertID, "id", req.ID)
			d.metrics.RecordSuppressed(ctx, "foreground")
			continue
		}
		if err := d.sink.Deliver(ctx, req); err != nil {
			logger.Warn("Failed to deliver notification", "alert", req.AlertID, "id", req.ID, "error", err)
			if err := (LogSink{}).Deliver(ctx, req); err != nil {
				continue
			}
		}
		delivered++
		d.metrics.RecordFired(ctx, "notification", req.Fixed)
	}

	if d.onDelivered == nil {
		return delivered, nil
	}

	pending, err := d.center.Pending(ctx)
	if err != nil {
		logger.Warn("Failed to read pending notifications", "error", err)
		return delivered, nil
	}
	for _, p := range pending {
		delete(finished, p.AlertID)
	}
	for id := range finished {
		d.onDelivered(ctx, id)
	}
	return delivered, nil
}
