package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/notify"
	"github.com/julianstephens/tradertime/internal/sound"
	"github.com/julianstephens/tradertime/internal/storage"
)

// memStore is an in-memory storage.AlertStore.
type memStore struct {
	mu     sync.Mutex
	alerts map[models.AlertID]models.Alert
}

func newMemStore(alerts ...models.Alert) *memStore {
	s := &memStore{alerts: make(map[models.AlertID]models.Alert)}
	for _, a := range alerts {
		s.alerts[a.ID] = a
	}
	return s
}

func (s *memStore) List(ctx context.Context) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id models.AlertID) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *memStore) Create(ctx context.Context, a models.Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; ok {
		return storage.ErrExists
	}
	s.alerts[a.ID] = a
	return nil
}

func (s *memStore) Update(ctx context.Context, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.alerts[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if err := storage.CheckUpdate(stored, a); err != nil {
		return err
	}
	s.alerts[a.ID] = a
	return nil
}

func (s *memStore) Toggle(ctx context.Context, id models.AlertID, enabled bool) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, storage.ErrNotFound
	}
	a.Enabled = enabled
	s.alerts[id] = a
	return a, nil
}

func (s *memStore) Delete(ctx context.Context, id models.AlertID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.IsFixed() {
		return storage.ErrFixedAlert
	}
	if _, ok := s.alerts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.alerts, id)
	return nil
}

// fakeAlarms records exact alarms by id, keeping snooze re-fires apart.
type fakeAlarms struct {
	mu      sync.Mutex
	pending map[alarmSlot]alarm.Alarm
	err     error
}

type alarmSlot struct {
	id      models.AlertID
	snoozed bool
}

func newFakeAlarms() *fakeAlarms {
	return &fakeAlarms{pending: make(map[alarmSlot]alarm.Alarm)}
}

func (f *fakeAlarms) ScheduleAlarm(a alarm.Alarm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pending[alarmSlot{a.ID, a.Snoozed}] = a
	return nil
}

func (f *fakeAlarms) CancelAlarm(id models.AlertID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, alarmSlot{id, false})
	delete(f.pending, alarmSlot{id, true})
}

func (f *fakeAlarms) CancelRegular(id models.AlertID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, alarmSlot{id, false})
}

// get returns the regular occurrence armed for id.
func (f *fakeAlarms) get(id models.AlertID) (alarm.Alarm, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.pending[alarmSlot{id, false}]
	return a, ok
}

func (f *fakeAlarms) snooze(id models.AlertID) (alarm.Alarm, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.pending[alarmSlot{id, true}]
	return a, ok
}

// Wednesday 2024-01-03 10:00 UTC.
var wednesday = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

func dailyAlert(key string, hour int) models.Alert {
	return models.Alert{
		ID:        models.UserID(key),
		Label:     "Daily " + key,
		HourUTC:   hour,
		MinuteUTC: 30,
		Recurrence: models.Recurrence{
			Type: models.RecurrenceWeekdays,
			Weekdays: []time.Weekday{
				time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
				time.Thursday, time.Friday, time.Saturday,
			},
		},
		Enabled: true,
	}
}

type harness struct {
	store  *memStore
	center *notify.MemoryCenter
	alarms *fakeAlarms
	clock  *clock.Fake
	co     *Coordinator
}

func newHarness(t *testing.T, platform delivery.Platform, alerts ...models.Alert) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(alerts...),
		center: notify.NewMemoryCenter(),
		alarms: newFakeAlarms(),
		clock:  clock.NewFake(wednesday),
	}
	ns := notify.NewScheduler(h.center, h.store, notify.WithClock(h.clock), notify.WithPlatform(platform))
	h.co = New(h.store, ns, h.alarms, WithClock(h.clock), WithRedeliveryDelay(0))
	return h
}

func (h *harness) pendingFor(t *testing.T, id models.AlertID) []notify.Request {
	t.Helper()
	all, err := h.center.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	var out []notify.Request
	for _, r := range all {
		if r.AlertID == id {
			out = append(out, r)
		}
	}
	return out
}

func TestCreateArmsNotification(t *testing.T) {
	h := newHarness(t, delivery.PlatformStandard)
	ctx := context.Background()

	a := dailyAlert("", 12)
	a.ID = models.AlertID{}
	created, err := h.co.Create(ctx, a)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID.IsZero() || created.ID.IsFixed() {
		t.Fatalf("Create() id = %v, want generated user id", created.ID)
	}
	if !created.CreatedAt.Equal(wednesday) {
		t.Errorf("CreatedAt = %v, want clock time", created.CreatedAt)
	}

	pending := h.pendingFor(t, created.ID)
	if len(pending) != 1 {
		t.Fatalf("pending notifications = %d, want 1", len(pending))
	}
	want := time.Date(2024, 1, 3, 12, 30, 0, 0, time.UTC)
	if !pending[0].At.Equal(want) {
		t.Errorf("notification at %v, want %v", pending[0].At, want)
	}
	if _, ok := h.alarms.get(created.ID); ok {
		t.Error("standard platform should not arm an exact alarm")
	}
}

func TestExactPlatformArmsAlarm(t *testing.T) {
	h := newHarness(t, delivery.PlatformExact)
	ctx := context.Background()

	a, err := h.co.Create(ctx, dailyAlert("x", 9))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, ok := h.alarms.get(a.ID)
	if !ok {
		t.Fatal("exact alarm not armed")
	}
	// 09:30 already passed on Wednesday, so Thursday.
	want := time.Date(2024, 1, 4, 9, 30, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("alarm at %v, want %v", got.At, want)
	}
	if n := len(h.pendingFor(t, a.ID)); n != 0 {
		t.Errorf("pending notifications = %d, want 0 on exact platform", n)
	}
}

func TestArmFailureDoesNotFailCreate(t *testing.T) {
	h := newHarness(t, delivery.PlatformExact)
	h.alarms.err = alarm.ErrPermissionDenied

	a, err := h.co.Create(context.Background(), dailyAlert("denied", 12))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	res, err := h.co.Arm(context.Background(), a)
	if !errors.Is(err, alarm.ErrPermissionDenied) {
		t.Errorf("Arm() error = %v, want ErrPermissionDenied", err)
	}
	if res.Armed || res.Path != delivery.PathExactAlarm {
		t.Errorf("Arm() = %+v, want unarmed exact-alarm", res)
	}
}

func TestArmWithoutAlarmService(t *testing.T) {
	store := newMemStore()
	ns := notify.NewScheduler(notify.NewMemoryCenter(), store, notify.WithPlatform(delivery.PlatformExact))
	co := New(store, ns, nil)

	_, err := co.Arm(context.Background(), dailyAlert("a", 1))
	if !errors.Is(err, ErrNoAlarmService) {
		t.Errorf("Arm() error = %v, want ErrNoAlarmService", err)
	}
}

func TestToggleDisarms(t *testing.T) {
	a := dailyAlert("t", 12)
	h := newHarness(t, delivery.PlatformStandard, a)
	ctx := context.Background()

	if _, err := h.co.Arm(ctx, a); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	if _, err := h.co.Toggle(ctx, a.ID, false); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if n := len(h.pendingFor(t, a.ID)); n != 0 {
		t.Errorf("pending after disable = %d, want 0", n)
	}

	if _, err := h.co.Toggle(ctx, a.ID, true); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if n := len(h.pendingFor(t, a.ID)); n != 1 {
		t.Errorf("pending after enable = %d, want 1", n)
	}

	if _, err := h.co.Toggle(ctx, models.UserID("missing"), true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Toggle(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateRearms(t *testing.T) {
	a := dailyAlert("u", 12)
	h := newHarness(t, delivery.PlatformStandard, a)
	ctx := context.Background()
	if _, err := h.co.Arm(ctx, a); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}

	a.HourUTC = 15
	if _, err := h.co.Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	pending := h.pendingFor(t, a.ID)
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want exactly 1 after update", len(pending))
	}
	if pending[0].At.Hour() != 15 {
		t.Errorf("pending at %v, want the updated hour", pending[0].At)
	}
}

func TestDeleteDisarmsBothPaths(t *testing.T) {
	a := dailyAlert("d", 12)
	h := newHarness(t, delivery.PlatformExact, a)
	ctx := context.Background()
	if _, err := h.co.Arm(ctx, a); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}

	if err := h.co.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := h.alarms.get(a.ID); ok {
		t.Error("alarm still pending after delete")
	}
	if err := h.co.Delete(ctx, models.FixedID(1)); !errors.Is(err, storage.ErrFixedAlert) {
		t.Errorf("Delete(fixed) error = %v, want ErrFixedAlert", err)
	}
}

func TestResume(t *testing.T) {
	fixed := models.FixedAlerts()
	user := dailyAlert("r", 12)
	disabled := dailyAlert("off", 13)
	disabled.Enabled = false
	all := append(fixed, user, disabled)

	t.Run("standard", func(t *testing.T) {
		h := newHarness(t, delivery.PlatformStandard, all...)
		sum, err := h.co.Resume(context.Background())
		if err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
		if sum.Notifications.Armed != len(fixed)+1 {
			t.Errorf("notifications armed = %d, want %d", sum.Notifications.Armed, len(fixed)+1)
		}
		if sum.Alarms.Armed != 0 {
			t.Errorf("alarms armed = %d, want 0", sum.Alarms.Armed)
		}
	})

	t.Run("exact", func(t *testing.T) {
		h := newHarness(t, delivery.PlatformExact, all...)
		sum, err := h.co.Resume(context.Background())
		if err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
		if sum.Alarms.Armed != len(fixed)+1 {
			t.Errorf("alarms armed = %d, want %d", sum.Alarms.Armed, len(fixed)+1)
		}
		if sum.Notifications.Armed != 0 {
			t.Errorf("notifications armed = %d, want 0 on exact platform", sum.Notifications.Armed)
		}
		if _, ok := h.alarms.get(disabled.ID); ok {
			t.Error("disabled alert armed")
		}
	})
}

func TestHandleAlarmFiredRearmsNextOccurrence(t *testing.T) {
	a := dailyAlert("f", 12)
	h := newHarness(t, delivery.PlatformExact, a)
	ctx := context.Background()

	// The 12:30 alarm rings; afterwards the next one is tomorrow.
	h.clock.Set(time.Date(2024, 1, 3, 12, 30, 0, 0, time.UTC))
	h.co.HandleAlarmFired(ctx, alarm.FromAlert(a, h.clock.Now()))

	got, ok := h.alarms.get(a.ID)
	if !ok {
		t.Fatal("next occurrence not armed")
	}
	want := time.Date(2024, 1, 4, 12, 30, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("re-armed at %v, want %v", got.At, want)
	}

	// A snooze re-fire does not touch the regular schedule.
	h.alarms.CancelAlarm(a.ID)
	snoozed := alarm.FromAlert(a, h.clock.Now())
	snoozed.Snoozed = true
	h.co.HandleAlarmFired(ctx, snoozed)
	if _, ok := h.alarms.get(a.ID); ok {
		t.Error("snooze re-fire re-armed the regular occurrence")
	}
}

func TestHandleSnoozedRearmsRegularOccurrence(t *testing.T) {
	a := dailyAlert("s", 12)
	h := newHarness(t, delivery.PlatformExact, a)

	h.co.HandleSnoozed(context.Background(), alarm.FromAlert(a, wednesday))
	if _, ok := h.alarms.get(a.ID); !ok {
		t.Error("regular occurrence not re-armed after snooze")
	}
}

func onceAlert(key, date string, hour, minute int) models.Alert {
	return models.Alert{
		ID:            models.UserID(key),
		Label:         "Once " + key,
		HourUTC:       hour,
		MinuteUTC:     minute,
		Recurrence:    models.Recurrence{Type: models.RecurrenceOnce, Date: date},
		SnoozeMinutes: 5,
		Enabled:       true,
	}
}

func TestArmWithoutNextOccurrenceKeepsSnooze(t *testing.T) {
	a := onceAlert("o", "2024-01-03", 9, 0)
	h := newHarness(t, delivery.PlatformExact, a)
	ctx := context.Background()

	stale := alarm.FromAlert(a, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))
	h.alarms.ScheduleAlarm(stale)
	refire := alarm.FromAlert(a, wednesday.Add(5*time.Minute))
	refire.Snoozed = true
	h.alarms.ScheduleAlarm(refire)

	res, err := h.co.Arm(ctx, a)
	if err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	if res.Armed {
		t.Errorf("Arm() = %+v, want nothing armed for a past one-off alert", res)
	}
	if _, ok := h.alarms.get(a.ID); ok {
		t.Error("stale regular occurrence still armed")
	}
	if got, ok := h.alarms.snooze(a.ID); !ok || !got.At.Equal(refire.At) {
		t.Errorf("snooze re-fire = %+v, %v; want it kept", got, ok)
	}

	if _, err := h.co.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if _, ok := h.alarms.snooze(a.ID); !ok {
		t.Error("Resume() dropped the snooze re-fire")
	}

	h.co.Disarm(ctx, a.ID)
	if _, ok := h.alarms.snooze(a.ID); ok {
		t.Error("Disarm() left the snooze re-fire armed")
	}
}

func TestSnoozeOutlivesOneOffAlert(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewFake(time.Date(2024, 1, 3, 10, 0, 59, 500_000_000, time.UTC))
	store := newMemStore()
	fired := make(chan struct{}, 1)
	snoozed := make(chan struct{}, 1)

	var co *Coordinator
	svc := alarm.New(ctx, sound.Nop{},
		alarm.WithClock(clk),
		alarm.OnFired(func(a alarm.Alarm) {
			co.HandleAlarmFired(ctx, a)
			fired <- struct{}{}
		}),
		alarm.OnSnoozed(func(a alarm.Alarm) {
			co.HandleSnoozed(ctx, a)
			snoozed <- struct{}{}
		}),
	)
	ns := notify.NewScheduler(notify.NewMemoryCenter(), store, notify.WithClock(clk), notify.WithPlatform(delivery.PlatformExact))
	co = New(store, ns, svc, WithClock(clk), WithRedeliveryDelay(0))

	a, err := co.Create(ctx, onceAlert("standup", "2024-01-03", 10, 1))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	clk.Set(time.Date(2024, 1, 3, 10, 1, 0, 500_000_000, time.UTC))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("alarm did not ring")
	}

	next, err := svc.Snooze()
	if err != nil {
		t.Fatalf("Snooze() error = %v", err)
	}
	select {
	case <-snoozed:
	case <-time.After(time.Second):
		t.Fatal("OnSnoozed hook not called")
	}

	pending := svc.Pending()
	if len(pending) != 1 || pending[0].ID != a.ID || !pending[0].Snoozed || !pending[0].At.Equal(next.At) {
		t.Fatalf("Pending() = %+v, want the snooze re-fire at %v", pending, next.At)
	}
	want := time.Date(2024, 1, 3, 10, 6, 0, 500_000_000, time.UTC)
	if !next.At.Equal(want) {
		t.Errorf("snooze at %v, want %v", next.At, want)
	}
}

func TestHandleNotificationDelivered(t *testing.T) {
	a := dailyAlert("n", 12)
	h := newHarness(t, delivery.PlatformStandard, a)
	ctx := context.Background()

	h.clock.Set(time.Date(2024, 1, 3, 12, 30, 1, 0, time.UTC))
	h.co.HandleNotificationDelivered(ctx, a.ID)

	pending := h.pendingFor(t, a.ID)
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].At.Day() != 4 {
		t.Errorf("re-armed at %v, want next day", pending[0].At)
	}

	// Deleted alerts are ignored.
	h.co.HandleNotificationDelivered(ctx, models.UserID("gone"))
}

func TestNextOccurrences(t *testing.T) {
	late := dailyAlert("late", 20)
	early := dailyAlert("early", 11)
	off := dailyAlert("off", 12)
	off.Enabled = false
	h := newHarness(t, delivery.PlatformStandard, late, early, off)

	got, err := h.co.NextOccurrences(context.Background(), 0)
	if err != nil {
		t.Fatalf("NextOccurrences() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("NextOccurrences() = %d entries, want 2", len(got))
	}
	if got[0].Alert.ID != early.ID || got[1].Alert.ID != late.ID {
		t.Errorf("order = %v, %v; want early then late", got[0].Alert.ID, got[1].Alert.ID)
	}
	if got[0].Path != delivery.PathNotification {
		t.Errorf("path = %v, want notification", got[0].Path)
	}

	limited, _ := h.co.NextOccurrences(context.Background(), 1)
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d", len(limited))
	}
}
