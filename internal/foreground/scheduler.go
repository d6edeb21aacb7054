// Package foreground polls the alert store while the app is in use and plays
// alerts whose trigger minute has arrived. Alerts owned by the exact-alarm
// path ring there; the loop only raises the session banner for them.
package foreground

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/dedup"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/market"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/observability/metrics"
	"github.com/julianstephens/tradertime/internal/recurrence"
	"github.com/julianstephens/tradertime/internal/sound"
)

const pathName = "foreground"

// AlertLister reads the current alert set.
type AlertLister interface {
	List(ctx context.Context) ([]models.Alert, error)
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = clock.Or(c) }
}

func WithPolicy(p market.Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithPlatform sets the platform used to decide which alerts the loop plays.
func WithPlatform(p delivery.Platform) Option {
	return func(s *Scheduler) { s.platform = p }
}

func WithDedupMode(m dedup.Mode) Option {
	return func(s *Scheduler) { s.dedup = dedup.New(m) }
}

func WithMetrics(m *metrics.AlertMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler is stopped until Start and returns to stopped on Stop or when the
// context passed to Start ends.
type Scheduler struct {
	alerts   AlertLister
	player   sound.Player
	clock    clock.Clock
	policy   market.Policy
	platform delivery.Platform
	dedup    *dedup.Deduplicator
	interval time.Duration
	metrics  *metrics.AlertMetrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	onFixed func(models.Alert)
}

func New(alerts AlertLister, player sound.Player, opts ...Option) *Scheduler {
	s := &Scheduler{
		alerts:   alerts,
		player:   player,
		clock:    clock.Real{},
		policy:   market.DefaultPolicy(),
		platform: delivery.PlatformStandard,
		dedup:    dedup.New(dedup.ModePerAlert),
		interval: constants.DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.player == nil {
		s.player = sound.Nop{}
	}
	return s
}

// OnFixedAlert registers fn to be called when a fixed alert comes due, whether
// the loop plays it or leaves it to the exact-alarm path. The UI uses it to
// show the session banner. Passing nil clears it.
func (s *Scheduler) OnFixedAlert(fn func(models.Alert)) {
	s.mu.Lock()
	s.onFixed = fn
	s.mu.Unlock()
}

// Start evaluates alerts immediately and then every interval until Stop or
// until ctx is cancelled. It returns false if the scheduler was already running
// or ctx is already done.
func (s *Scheduler) Start(ctx context.Context) bool {
	if ctx.Err() != nil {
		logger.Debug("Foreground scheduler not started, context done", "error", ctx.Err())
		return false
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Debug("Foreground scheduler already running")
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	logger.Info("Starting foreground scheduler", "interval", s.interval)
	go s.loop(loopCtx, done)
	return true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.exited(done)
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// exited marks the scheduler stopped when its loop ends because the parent
// context was cancelled. It does nothing once Stop or a later Start has
// replaced done.
func (s *Scheduler) exited(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.running = false
	s.cancel = nil
	s.done = nil
	s.dedup.Reset()
	logger.Info("Foreground scheduler stopped with its context")
}

// Stop halts the loop, waits for an in-flight evaluation to finish, and clears
// the dedup memory. It returns false if the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		logger.Debug("Foreground scheduler not running")
		return false
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.dedup.Reset()
	logger.Info("Stopped foreground scheduler")
	return true
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tick runs one evaluation pass and returns the alerts it played.
func (s *Scheduler) Tick(ctx context.Context) []models.Alert {
	now := s.clock.Now().UTC()

	alerts, err := s.alerts.List(ctx)
	if err != nil {
		logger.Error("Failed to load alerts", "error", err)
		return nil
	}

	s.mu.Lock()
	onFixed := s.onFixed
	s.mu.Unlock()

	var fired []models.Alert
	for _, a := range alerts {
		if !a.Enabled || !recurrence.Due(a, now) {
			continue
		}
		if !s.policy.Allow(a, now) {
			logger.Debug("Alert suppressed, market closed", "alert", a.ID, "label", a.Label, "state", market.StateAt(now))
			s.metrics.RecordSuppressed(ctx, "market-closed")
			continue
		}
		if !s.dedup.Observe(dedup.KeyFor(a.ID, now)) {
			s.metrics.RecordSuppressed(ctx, "duplicate")
			continue
		}

		if !delivery.ForegroundPlays(s.platform, a) {
			logger.Debug("Alert left to its owning path", "alert", a.ID, "owner", delivery.Owner(s.platform, a))
			if a.Fixed && onFixed != nil {
				onFixed(a)
			}
			continue
		}

		logger.Info("ALARM TRIGGERED", "alert", a.ID, "label", a.DisplayLabel(), "time", a.TimeString()+" UTC")
		if _, err := sound.PlayFor(s.player, a.Sound(), a.Playback()); err != nil {
			logger.Warn("Failed to play alert sound", "alert", a.ID, "sound", a.Sound(), "error", err)
		}
		if a.Fixed && onFixed != nil {
			onFixed(a)
		}
		s.metrics.RecordFired(ctx, pathName, a.Fixed)
		fired = append(fired, a)
	}
	return fired
}
