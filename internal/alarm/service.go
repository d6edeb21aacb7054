package alarm

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/market"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/observability/metrics"
	"github.com/julianstephens/tradertime/internal/sound"
)

var (
	ErrPermissionDenied = errors.New("exact alarm permission not granted")
	ErrPastTrigger      = errors.New("alarm trigger is not in the future")
	ErrNotRinging       = errors.New("no alarm is ringing")
	ErrInvalidAlarm     = errors.New("alarm has no alert id")
)

var pathName = delivery.PathExactAlarm.String()

// PermissionFunc reports whether exact alarms may currently be scheduled.
type PermissionFunc func() bool

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = clock.Or(c) }
}

func WithPermission(fn PermissionFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.permission = fn
		}
	}
}

// WithRingTimeout stops a ringing alarm after d. Zero rings until stopped.
func WithRingTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.ringTimeout = d
		}
	}
}

func WithMetrics(m *metrics.AlertMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPolicy gates fixed alarms on the market state when they come due.
func WithPolicy(p market.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// OnFired registers a hook run once an alarm's trigger has been handled,
// whether it rang or the market policy held it back.
func OnFired(fn func(Alarm)) Option {
	return func(s *Service) { s.onFired = fn }
}

// OnSnoozed registers a hook run after a ringing alarm is snoozed. It
// receives the alarm that was ringing, not the snooze re-fire.
func OnSnoozed(fn func(Alarm)) Option {
	return func(s *Service) { s.onSnoozed = fn }
}

// Service owns the pending alarms and the currently ringing one.
type Service struct {
	addCh    chan Alarm
	removeCh chan cancelRequest
	queryCh  chan chan []Alarm
	ctx      context.Context

	player      sound.Player
	clock       clock.Clock
	permission  PermissionFunc
	ringTimeout time.Duration
	metrics     *metrics.AlertMetrics
	policy      market.Policy
	onFired     func(Alarm)
	onSnoozed   func(Alarm)

	mu      sync.Mutex
	current *ringing
}

type cancelRequest struct {
	id          models.AlertID
	regularOnly bool
}

type ringing struct {
	alarm     Alarm
	startedAt time.Time
	session   sound.Session
	timeout   *time.Timer
}

func (r *ringing) halt() {
	if r.timeout != nil {
		r.timeout.Stop()
	}
	if r.session != nil {
		r.session.Stop()
	}
}

// New starts the alarm goroutine. It exits when ctx is cancelled.
func New(ctx context.Context, player sound.Player, opts ...Option) *Service {
	s := newService(ctx, player, opts...)
	go s.run()
	return s
}

func newService(ctx context.Context, player sound.Player, opts ...Option) *Service {
	if player == nil {
		player = sound.Nop{}
	}
	s := &Service{
		addCh:      make(chan Alarm, 64),
		removeCh:   make(chan cancelRequest, 64),
		queryCh:    make(chan chan []Alarm),
		ctx:        ctx,
		player:     player,
		clock:      clock.Real{},
		permission: func() bool { return true },
		policy:     market.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanScheduleExactAlarms reports the current permission.
func (s *Service) CanScheduleExactAlarms() bool {
	return s.permission()
}

// CheckPermission reports the permission in the shape the UI consumes.
func (s *Service) CheckPermission() Permission {
	granted := s.permission()
	return Permission{Granted: granted, NeedsUserAction: !granted}
}

// ScheduleAlarm arms a, replacing any pending alarm with the same key.
func (s *Service) ScheduleAlarm(a Alarm) error {
	if a.ID.IsZero() {
		return ErrInvalidAlarm
	}
	if !s.permission() {
		logger.Warn("Exact alarm permission not granted", "alert", a.ID)
		s.metrics.RecordArmFailure(s.ctx, pathName, "permission")
		return ErrPermissionDenied
	}
	if !a.At.After(s.clock.Now()) {
		s.metrics.RecordArmFailure(s.ctx, pathName, "past")
		return fmt.Errorf("%w: %s", ErrPastTrigger, a.At.Format(time.RFC3339))
	}

	select {
	case s.addCh <- a:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	logger.Info("Exact alarm scheduled", "alert", a.ID, "label", a.Label, "at", a.At.Format(time.RFC3339), "snoozed", a.Snoozed)
	s.metrics.RecordArmed(s.ctx, pathName)
	return nil
}

// CancelAlarm removes the pending alarm and any pending snooze for id.
// Cancelling an id with nothing pending is a no-op.
func (s *Service) CancelAlarm(id models.AlertID) {
	s.cancel(cancelRequest{id: id})
}

// CancelRegular removes the pending regular occurrence for id and leaves a
// pending snooze re-fire armed.
func (s *Service) CancelRegular(id models.AlertID) {
	s.cancel(cancelRequest{id: id, regularOnly: true})
}

func (s *Service) cancel(req cancelRequest) {
	select {
	case s.removeCh <- req:
	case <-s.ctx.Done():
	}
}

// Pending returns the armed alarms in trigger order.
func (s *Service) Pending() []Alarm {
	reply := make(chan []Alarm, 1)
	select {
	case s.queryCh <- reply:
	case <-s.ctx.Done():
		return nil
	}
	select {
	case out := <-reply:
		return out
	case <-s.ctx.Done():
		return nil
	}
}

// Current returns the ringing alarm, if any.
func (s *Service) Current() (Ringing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Ringing{}, false
	}
	return Ringing{Alarm: s.current.alarm, StartedAt: s.current.startedAt}, true
}

// StopCurrentAlarm silences the ringing alarm. It reports whether one was
// ringing.
func (s *Service) StopCurrentAlarm() bool {
	r := s.takeCurrent()
	if r == nil {
		return false
	}
	r.halt()
	logger.Info("Alarm stopped", "alert", r.alarm.ID, "label", r.alarm.Label)
	s.metrics.RecordRingDuration(s.ctx, "stopped", s.clock.Now().Sub(r.startedAt))
	return true
}

// Snooze silences the ringing alarm and arms a one-off re-fire after the
// alarm's snooze duration. The alert's regular schedule is left to the
// OnSnoozed hook.
func (s *Service) Snooze() (Alarm, error) {
	r := s.takeCurrent()
	if r == nil {
		return Alarm{}, ErrNotRinging
	}
	r.halt()
	now := s.clock.Now()
	s.metrics.RecordRingDuration(s.ctx, "snoozed", now.Sub(r.startedAt))

	next := r.alarm
	next.Snoozed = true
	next.At = now.Add(r.alarm.snoozeDelay())
	if err := s.ScheduleAlarm(next); err != nil {
		logger.Error("Failed to schedule snooze", "alert", next.ID, "error", err)
		return Alarm{}, fmt.Errorf("failed to schedule snooze: %w", err)
	}
	logger.Info("Alarm snoozed", "alert", next.ID, "until", next.At.Format(time.RFC3339))

	if s.onSnoozed != nil {
		go s.onSnoozed(r.alarm)
	}
	return next, nil
}

func (s *Service) takeCurrent() *ringing {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.current
	s.current = nil
	return r
}

// ring starts playback for a, superseding whatever was ringing.
func (s *Service) ring(a Alarm) {
	now := s.clock.Now()
	session, err := s.player.Start(a.SoundID)
	if err != nil {
		logger.Error("Failed to start alarm sound", "alert", a.ID, "sound", a.SoundID, "error", err)
	}
	r := &ringing{alarm: a, startedAt: now, session: session}

	s.mu.Lock()
	prev := s.current
	s.current = r
	if s.ringTimeout > 0 {
		r.timeout = time.AfterFunc(s.ringTimeout, func() { s.expire(r) })
	}
	s.mu.Unlock()

	if prev != nil {
		prev.halt()
		s.metrics.RecordRingDuration(s.ctx, "superseded", now.Sub(prev.startedAt))
	}

	logger.Info("ALARM RINGING", "alert", a.ID, "label", a.Label, "snoozed", a.Snoozed)
	s.metrics.RecordFired(s.ctx, pathName, a.ID.IsFixed())
	if s.onFired != nil {
		go s.onFired(a)
	}
}

func (s *Service) expire(r *ringing) {
	s.mu.Lock()
	if s.current != r {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.mu.Unlock()

	r.halt()
	logger.Info("Alarm ring timed out", "alert", r.alarm.ID)
	s.metrics.RecordRingDuration(s.ctx, "timeout", s.ringTimeout)
}

// run is the only goroutine touching the heap. It sleeps until the earliest
// trigger, never longer than AlarmMaxSleep.
func (s *Service) run() {
	h := &alarmHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if r := s.takeCurrent(); r != nil {
			r.halt()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := (*h)[0].At.Sub(s.clock.Now())
		if dur > constants.AlarmMaxSleep {
			dur = constants.AlarmMaxSleep
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case a := <-s.addCh:
			heapReplace(h, a)
			timerCh = resetTimer()

		case req := <-s.removeCh:
			removed := heapRemove(h, alarmKey{id: req.id})
			if !req.regularOnly && heapRemove(h, alarmKey{id: req.id, snoozed: true}) {
				removed = true
			}
			if removed {
				logger.Debug("Exact alarm cancelled", "alert", req.id, "regular_only", req.regularOnly)
			}
			timerCh = resetTimer()

		case reply := <-s.queryCh:
			reply <- h.snapshot()

		case <-timerCh:
			s.fireDue(h, s.clock.Now())
			timerCh = resetTimer()
		}
	}
}

// fireDue rings every alarm whose trigger has arrived and the market policy
// allows. When several are due at once the latest one is left ringing.
func (s *Service) fireDue(h *alarmHeap, now time.Time) int {
	n := 0
	for h.Len() > 0 && !(*h)[0].At.After(now) {
		a := heapPop(h)
		if !s.policy.Allow(a.alert(), a.At) {
			s.suppress(a)
			continue
		}
		s.ring(a)
		n++
	}
	return n
}

func (s *Service) suppress(a Alarm) {
	logger.Info("Alarm held back while market closed", "alert", a.ID, "label", a.Label)
	s.metrics.RecordSuppressed(s.ctx, "market-closed")
	if s.onFired != nil {
		go s.onFired(a)
	}
}
