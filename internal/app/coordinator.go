// Package app wires the alert store to the delivery paths. Every user action
// writes the store first and then re-arms the affected alert on the single
// path that owns it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/notify"
	"github.com/julianstephens/tradertime/internal/recurrence"
	"github.com/julianstephens/tradertime/internal/storage"
)

var ErrNoAlarmService = errors.New("platform owns alerts through exact alarms but no alarm service is configured")

// NotificationScheduler is the background notification path.
type NotificationScheduler interface {
	Schedule(ctx context.Context, a models.Alert) (notify.Outcome, error)
	Cancel(ctx context.Context, id models.AlertID) error
	RescheduleAll(ctx context.Context) (notify.Summary, error)
	Platform() delivery.Platform
}

// AlarmScheduler is the exact-alarm path. CancelAlarm clears the regular
// occurrence and any snooze re-fire; CancelRegular leaves the snooze armed.
type AlarmScheduler interface {
	ScheduleAlarm(a alarm.Alarm) error
	CancelAlarm(id models.AlertID)
	CancelRegular(id models.AlertID)
}

type Option func(*Coordinator)

func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = clock.Or(c) }
}

// WithRedeliveryDelay sets how long after a delivered notification the alert
// is re-armed. Zero re-arms synchronously.
func WithRedeliveryDelay(d time.Duration) Option {
	return func(co *Coordinator) {
		if d >= 0 {
			co.redeliveryDelay = d
		}
	}
}

// Coordinator serialises user actions and re-arms alerts after they fire.
type Coordinator struct {
	mu              sync.Mutex
	store           storage.AlertStore
	notifications   NotificationScheduler
	alarms          AlarmScheduler
	clock           clock.Clock
	redeliveryDelay time.Duration
}

// New builds a coordinator. alarms may be nil on platforms without an
// exact-alarm service.
func New(store storage.AlertStore, notifications NotificationScheduler, alarms AlarmScheduler, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:           store,
		notifications:   notifications,
		alarms:          alarms,
		clock:           clock.Real{},
		redeliveryDelay: constants.RedeliveryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Platform() delivery.Platform {
	return c.notifications.Platform()
}

// Armed reports where an alert ended up after Arm.
type Armed struct {
	Path  delivery.Path `json:"path"`
	Armed bool          `json:"armed"`
	At    time.Time     `json:"at,omitempty"`
}

// Create stores a new user alert and arms it.
func (c *Coordinator) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = models.NewUserID()
	}
	a.Fixed = false
	if a.CreatedAt.IsZero() {
		a.CreatedAt = c.clock.Now()
	}
	if err := c.store.Create(ctx, a); err != nil {
		return models.Alert{}, fmt.Errorf("failed to create alert: %w", err)
	}
	logger.Info("Alert created", "alert", a.ID, "label", a.Label, "time", a.TimeString())
	c.rearm(ctx, a)
	return a, nil
}

// Update replaces a stored alert and re-arms it.
func (c *Coordinator) Update(ctx context.Context, a models.Alert) (models.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Update(ctx, a); err != nil {
		return models.Alert{}, fmt.Errorf("failed to update alert: %w", err)
	}
	stored, err := c.store.Get(ctx, a.ID)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to reload alert: %w", err)
	}
	c.rearm(ctx, stored)
	return stored, nil
}

// Toggle enables or disables an alert and re-arms or disarms it.
func (c *Coordinator) Toggle(ctx context.Context, id models.AlertID, enabled bool) (models.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, err := c.store.Toggle(ctx, id, enabled)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to toggle alert: %w", err)
	}
	logger.Info("Alert toggled", "alert", id, "enabled", enabled)
	c.rearm(ctx, a)
	return a, nil
}

// Delete removes a user alert and anything pending for it.
func (c *Coordinator) Delete(ctx context.Context, id models.AlertID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	c.Disarm(ctx, id)
	logger.Info("Alert deleted", "alert", id)
	return nil
}

func (c *Coordinator) rearm(ctx context.Context, a models.Alert) {
	if _, err := c.Arm(ctx, a); err != nil {
		logger.Error("Alert saved but not armed", "alert", a.ID, "error", err)
	}
}

// Arm makes the owning path hold exactly the next occurrence of a and clears
// the other path. Disabled alerts are disarmed everywhere.
func (c *Coordinator) Arm(ctx context.Context, a models.Alert) (Armed, error) {
	path := delivery.Owner(c.Platform(), a)
	res := Armed{Path: path}

	switch path {
	case delivery.PathNone:
		c.Disarm(ctx, a.ID)
		return res, nil

	case delivery.PathNotification:
		c.cancelAlarm(a.ID)
		outcome, err := c.notifications.Schedule(ctx, a)
		if err != nil {
			return res, err
		}
		res.Armed = outcome == notify.OutcomeArmed
		if res.Armed {
			res.At, _ = recurrence.Next(a, c.clock.Now())
		}
		return res, nil

	case delivery.PathExactAlarm:
		if err := c.notifications.Cancel(ctx, a.ID); err != nil {
			logger.Warn("Failed to cancel notification for alarm-owned alert", "alert", a.ID, "error", err)
		}
		if c.alarms == nil {
			return res, ErrNoAlarmService
		}
		next, ok := recurrence.Next(a, c.clock.Now())
		if !ok {
			// A snooze re-fire outlives the alert's last regular occurrence.
			c.alarms.CancelRegular(a.ID)
			logger.Info("No future occurrence for alert", "alert", a.ID, "label", a.Label)
			return res, nil
		}
		if err := c.alarms.ScheduleAlarm(alarm.FromAlert(a, next)); err != nil {
			return res, fmt.Errorf("failed to schedule exact alarm for %s: %w", a.ID, err)
		}
		res.Armed = true
		res.At = next
		return res, nil
	}
	return res, fmt.Errorf("unknown delivery path %v", path)
}

// Disarm clears id from every path. Clearing nothing is not an error.
func (c *Coordinator) Disarm(ctx context.Context, id models.AlertID) {
	if err := c.notifications.Cancel(ctx, id); err != nil {
		logger.Warn("Failed to cancel notification", "alert", id, "error", err)
	}
	c.cancelAlarm(id)
}

func (c *Coordinator) cancelAlarm(id models.AlertID) {
	if c.alarms != nil {
		c.alarms.CancelAlarm(id)
	}
}

// ResumeSummary counts what a full resync armed.
type ResumeSummary struct {
	Notifications notify.Summary `json:"notifications"`
	Alarms        notify.Summary `json:"alarms"`
}

// Resume is the full resync run on cold start and whenever the app returns
// to the foreground. It is the recovery path for drift, missed updates and
// crashes.
func (c *Coordinator) Resume(ctx context.Context) (ResumeSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum ResumeSummary
	n, err := c.notifications.RescheduleAll(ctx)
	sum.Notifications = n
	if err != nil {
		return sum, err
	}

	if !c.Platform().ExactAlarms {
		return sum, nil
	}
	alerts, err := c.store.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to load alerts: %w", err)
	}
	for _, a := range alerts {
		if delivery.Owner(c.Platform(), a) != delivery.PathExactAlarm {
			continue
		}
		res, err := c.Arm(ctx, a)
		switch {
		case err != nil:
			logger.Warn("Failed to arm exact alarm", "alert", a.ID, "error", err)
			sum.Alarms.Failed++
		case res.Armed:
			sum.Alarms.Armed++
		default:
			sum.Alarms.Skipped++
		}
	}
	logger.Info("Re-armed exact alarms", "armed", sum.Alarms.Armed, "skipped", sum.Alarms.Skipped, "failed", sum.Alarms.Failed)
	return sum, nil
}

// HandleAlarmFired re-arms the next regular occurrence after an exact alarm
// rings. Snooze re-fires leave the regular schedule alone.
func (c *Coordinator) HandleAlarmFired(ctx context.Context, a alarm.Alarm) {
	if a.Snoozed {
		return
	}
	c.rearmByID(ctx, a.ID, "alarm fired")
}

// HandleSnoozed re-arms the regular occurrence of a snoozed alert alongside
// the one-off snooze alarm.
func (c *Coordinator) HandleSnoozed(ctx context.Context, a alarm.Alarm) {
	c.rearmByID(ctx, a.ID, "alarm snoozed")
}

// HandleNotificationDelivered re-arms an alert once its notification has been
// shown.
func (c *Coordinator) HandleNotificationDelivered(ctx context.Context, id models.AlertID) {
	if c.redeliveryDelay == 0 {
		c.rearmByID(ctx, id, "notification delivered")
		return
	}
	time.AfterFunc(c.redeliveryDelay, func() {
		if ctx.Err() != nil {
			return
		}
		c.rearmByID(ctx, id, "notification delivered")
	})
}

func (c *Coordinator) rearmByID(ctx context.Context, id models.AlertID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, err := c.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("Failed to load alert for re-arm", "alert", id, "reason", reason, "error", err)
		}
		return
	}
	res, err := c.Arm(ctx, a)
	if err != nil {
		logger.Error("Failed to re-arm alert", "alert", id, "reason", reason, "error", err)
		return
	}
	logger.Debug("Alert re-armed", "alert", id, "reason", reason, "path", res.Path, "at", res.At)
}

// Occurrence is one upcoming trigger.
type Occurrence struct {
	Alert models.Alert  `json:"alert"`
	At    time.Time     `json:"at"`
	Path  delivery.Path `json:"path"`
}

// NextOccurrences lists the next trigger of each enabled alert, soonest
// first, up to limit entries. A limit of zero lists all.
func (c *Coordinator) NextOccurrences(ctx context.Context, limit int) ([]Occurrence, error) {
	alerts, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}
	return Upcoming(alerts, c.Platform(), c.clock.Now(), limit), nil
}

// Upcoming resolves the next trigger of each enabled alert on platform p.
func Upcoming(alerts []models.Alert, p delivery.Platform, now time.Time, limit int) []Occurrence {
	var out []Occurrence
	for _, a := range alerts {
		if !a.Enabled {
			continue
		}
		next, ok := recurrence.Next(a, now)
		if !ok {
			continue
		}
		out = append(out, Occurrence{Alert: a, At: next, Path: delivery.Owner(p, a)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// List returns the stored alerts.
func (c *Coordinator) List(ctx context.Context) ([]models.Alert, error) {
	return c.store.List(ctx)
}
