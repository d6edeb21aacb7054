package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/observability/metrics"
	"github.com/julianstephens/tradertime/internal/recurrence"
)

var (
	// ErrStaleTrigger marks a trigger instant that was already in the past by
	// more than the tolerance when it reached the platform.
	ErrStaleTrigger = errors.New("trigger instant is in the past")
)

// Outcome reports what Schedule did with an alert.
type Outcome int

const (
	OutcomeArmed Outcome = iota
	OutcomeDisabled
	OutcomeDeferred
	OutcomeNoOccurrence
	OutcomePermissionDenied
	OutcomeStale
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeArmed:
		return "armed"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeNoOccurrence:
		return "no-occurrence"
	case OutcomePermissionDenied:
		return "permission-denied"
	case OutcomeStale:
		return "stale"
	default:
		return "failed"
	}
}

// AlertLister reads the current alert set.
type AlertLister interface {
	List(ctx context.Context) ([]models.Alert, error)
}

type Option func(*Scheduler)

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = clock.Or(c) }
}

func WithPlatform(p delivery.Platform) Option {
	return func(s *Scheduler) { s.platform = p }
}

func WithTolerance(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.tolerance = d
		}
	}
}

func WithBurstGap(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.burstGap = d
		}
	}
}

func WithMetrics(m *metrics.AlertMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler keeps at most one pending occurrence per alert in a Center.
type Scheduler struct {
	center    Center
	alerts    AlertLister
	clock     clock.Clock
	platform  delivery.Platform
	tolerance time.Duration
	burstGap  time.Duration
	metrics   *metrics.AlertMetrics
}

func NewScheduler(center Center, alerts AlertLister, opts ...Option) *Scheduler {
	s := &Scheduler{
		center:    center,
		alerts:    alerts,
		clock:     clock.Real{},
		platform:  delivery.PlatformStandard,
		tolerance: constants.DefaultPastTolerance,
		burstGap:  constants.NotificationBurstGap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Platform() delivery.Platform {
	return s.platform
}

func (s *Scheduler) burst() int {
	n := s.platform.Burst
	if n < 1 {
		return 1
	}
	if n > constants.MaxNotificationBurst {
		return constants.MaxNotificationBurst
	}
	return n
}

// Schedule cancels whatever is pending for a and, when this path owns a, arms
// its next occurrence. Calling it twice leaves exactly one pending occurrence.
// The error is non-nil only when the platform call itself failed.
func (s *Scheduler) Schedule(ctx context.Context, a models.Alert) (Outcome, error) {
	if err := s.Cancel(ctx, a.ID); err != nil {
		logger.Warn("Failed to cancel pending notification", "alert", a.ID, "error", err)
	}

	if !a.Enabled {
		return OutcomeDisabled, nil
	}
	if owner := delivery.Owner(s.platform, a); owner != delivery.PathNotification {
		logger.Debug("Notification deferred to another path", "alert", a.ID, "owner", owner)
		return OutcomeDeferred, nil
	}

	perm, err := s.center.Permission(ctx)
	if err != nil {
		logger.Error("Failed to read notification permission", "error", err)
		s.metrics.RecordArmFailure(ctx, delivery.PathNotification.String(), "permission-error")
		return OutcomeFailed, fmt.Errorf("failed to read notification permission: %w", err)
	}
	if perm != PermissionGranted {
		logger.Warn("Notification permission not granted, alert not armed", "alert", a.ID, "permission", perm)
		s.metrics.RecordArmFailure(ctx, delivery.PathNotification.String(), "permission")
		return OutcomePermissionDenied, nil
	}

	next, ok := recurrence.Next(a, s.clock.Now())
	if !ok {
		logger.Info("No future occurrence for alert", "alert", a.ID, "label", a.Label)
		return OutcomeNoOccurrence, nil
	}

	for slot := 0; slot < s.burst(); slot++ {
		at := next.Add(time.Duration(slot) * s.burstGap)
		at, err := s.checkTrigger(at)
		if err != nil {
			logger.Warn("Abandoning stale notification", "alert", a.ID, "at", at, "error", err)
			s.metrics.RecordArmFailure(ctx, delivery.PathNotification.String(), "stale")
			return OutcomeStale, nil
		}

		req := Request{
			ID:      IDFor(a.ID, slot),
			AlertID: a.ID,
			Title:   NotificationTitle,
			Body:    a.DisplayLabel(),
			At:      at,
			Channel: ChannelFor(a.SoundID),
			SoundID: a.Sound(),
			Fixed:   a.Fixed,
		}
		if err := s.center.Schedule(ctx, req); err != nil {
			logger.Error("Failed to schedule notification", "alert", a.ID, "label", a.Label, "error", err)
			s.metrics.RecordArmFailure(ctx, delivery.PathNotification.String(), "platform")
			return OutcomeFailed, fmt.Errorf("failed to schedule notification for %s: %w", a.ID, err)
		}
	}

	logger.Info("Scheduled notification", "alert", a.ID, "label", a.Label, "at", next.Format(time.RFC3339), "burst", s.burst())
	s.metrics.RecordArmed(ctx, delivery.PathNotification.String())
	return OutcomeArmed, nil
}

// checkTrigger re-reads the clock right before the hand-off. Instants up to
// the tolerance in the past are clamped to now; older ones are stale.
func (s *Scheduler) checkTrigger(at time.Time) (time.Time, error) {
	now := s.clock.Now()
	if !at.Before(now) {
		return at, nil
	}
	if now.Sub(at) > s.tolerance {
		return at, fmt.Errorf("%w by %v", ErrStaleTrigger, now.Sub(at))
	}
	return now, nil
}

// Cancel removes any pending notification for id, across every burst slot.
func (s *Scheduler) Cancel(ctx context.Context, id models.AlertID) error {
	if err := s.center.Cancel(ctx, IDsFor(id, constants.MaxNotificationBurst)...); err != nil {
		return fmt.Errorf("failed to cancel notifications for %s: %w", id, err)
	}
	return nil
}

// Summary counts the outcomes of a RescheduleAll pass.
type Summary struct {
	Armed   int
	Skipped int
	Failed  int
}

// RescheduleAll clears every pending notification and arms the next occurrence
// of each enabled alert. Failures of single alerts are logged and counted.
func (s *Scheduler) RescheduleAll(ctx context.Context) (Summary, error) {
	var sum Summary

	perm, err := s.center.Permission(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to read notification permission: %w", err)
	}
	if perm != PermissionGranted {
		logger.Warn("No notification permission, cannot schedule alerts", "permission", perm)
		return sum, nil
	}

	if err := s.center.CancelAll(ctx); err != nil {
		logger.Warn("Failed to clear pending notifications", "error", err)
	}

	alerts, err := s.alerts.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to load alerts: %w", err)
	}

	for _, a := range alerts {
		if !a.Enabled {
			continue
		}
		outcome, err := s.Schedule(ctx, a)
		switch {
		case err != nil:
			sum.Failed++
		case outcome == OutcomeArmed:
			sum.Armed++
		default:
			sum.Skipped++
		}
	}

	logger.Info("Rescheduled alerts", "armed", sum.Armed, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}
