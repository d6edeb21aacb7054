package rediscenter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/notify"
	"github.com/julianstephens/tradertime/internal/testutil"
)

var base = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

func request(id models.AlertID, slot int, at time.Time) notify.Request {
	return notify.Request{
		ID:      notify.IDFor(id, slot),
		AlertID: id,
		Title:   notify.NotificationTitle,
		Body:    "test",
		At:      at,
		Channel: notify.ChannelFor(""),
		SoundID: models.DefaultSoundID,
		Fixed:   id.IsFixed(),
	}
}

func setupCenter(t *testing.T) (*Center, context.Context, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client, cleanup := testutil.SetupRedisContainer(ctx, t)
	return New(client), ctx, cleanup
}

func TestScheduleAndPending(t *testing.T) {
	c, ctx, cleanup := setupCenter(t)
	defer cleanup()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	late := request(models.UserID("late"), 0, base.Add(2*time.Hour))
	early := request(models.FixedID(3), 0, base.Add(time.Hour))
	for _, r := range []notify.Request{late, early} {
		if err := c.Schedule(ctx, r); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}
	// Re-scheduling the same id replaces it.
	late.At = base.Add(3 * time.Hour)
	if err := c.Schedule(ctx, late); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	pending, err := c.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Pending() = %d, want 2", len(pending))
	}
	if pending[0].ID != early.ID || !pending[1].At.Equal(late.At) {
		t.Errorf("Pending() = %+v", pending)
	}
	if pending[0].AlertID != early.AlertID || !pending[0].Fixed {
		t.Errorf("payload did not round-trip: %+v", pending[0])
	}
}

func TestCancel(t *testing.T) {
	c, ctx, cleanup := setupCenter(t)
	defer cleanup()

	id := models.UserID("c")
	for slot := 0; slot < 3; slot++ {
		if err := c.Schedule(ctx, request(id, slot, base.Add(time.Duration(slot)*time.Minute))); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}
	other := request(models.FixedID(1), 0, base)
	if err := c.Schedule(ctx, other); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	if err := c.Cancel(ctx, notify.IDsFor(id, constants.MaxNotificationBurst)...); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	pending, _ := c.Pending(ctx)
	if len(pending) != 1 || pending[0].ID != other.ID {
		t.Errorf("Pending() after cancel = %+v", pending)
	}

	if err := c.CancelAll(ctx); err != nil {
		t.Fatalf("CancelAll() error = %v", err)
	}
	pending, _ = c.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("Pending() after CancelAll = %d", len(pending))
	}
}

func TestPopDue(t *testing.T) {
	c, ctx, cleanup := setupCenter(t)
	defer cleanup()

	due := request(models.UserID("due"), 0, base)
	future := request(models.UserID("future"), 0, base.Add(time.Minute))
	for _, r := range []notify.Request{due, future} {
		if err := c.Schedule(ctx, r); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
	}

	got, err := c.PopDue(ctx, base)
	if err != nil {
		t.Fatalf("PopDue() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("PopDue() = %+v, want only the due request", got)
	}

	again, err := c.PopDue(ctx, base)
	if err != nil || len(again) != 0 {
		t.Errorf("second PopDue() = %+v, %v; want nothing", again, err)
	}
	pending, _ := c.Pending(ctx)
	if len(pending) != 1 || pending[0].ID != future.ID {
		t.Errorf("Pending() = %+v, want the future request", pending)
	}
}

func TestPermission(t *testing.T) {
	c, ctx, cleanup := setupCenter(t)
	defer cleanup()

	p, err := c.Permission(ctx)
	if err != nil || p != notify.PermissionGranted {
		t.Errorf("default Permission() = %v, %v; want granted", p, err)
	}

	if err := c.SetPermission(ctx, notify.PermissionDenied); err != nil {
		t.Fatalf("SetPermission() error = %v", err)
	}
	p, err = c.Permission(ctx)
	if err != nil || p != notify.PermissionDenied {
		t.Errorf("Permission() = %v, %v; want denied", p, err)
	}

	if err := c.client.Set(ctx, constants.RedisPermissionKey, "maybe", 0).Err(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Permission(ctx); !errors.Is(err, ErrInvalidPermission) {
		t.Errorf("Permission() error = %v, want ErrInvalidPermission", err)
	}
}

func TestSchedulerOverRedis(t *testing.T) {
	c, ctx, cleanup := setupCenter(t)
	defer cleanup()

	a := models.Alert{
		ID:         models.UserID("sched"),
		Label:      "London close",
		HourUTC:    16,
		Recurrence: models.Recurrence{Type: models.RecurrenceOnce, Date: "2030-06-03"},
		Enabled:    true,
	}
	s := notify.NewScheduler(c, nil)
	outcome, err := s.Schedule(ctx, a)
	if err != nil || outcome != notify.OutcomeArmed {
		t.Fatalf("Schedule() = %v, %v; want armed", outcome, err)
	}
	pending, _ := c.Pending(ctx)
	want := time.Date(2030, 6, 3, 16, 0, 0, 0, time.UTC)
	if len(pending) != 1 || !pending[0].At.Equal(want) {
		t.Errorf("Pending() = %+v, want one at %v", pending, want)
	}
}
