package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradertime.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func userAlert(key string) models.Alert {
	return models.Alert{
		ID:        models.UserID(key),
		Label:     "Check EURUSD",
		HourUTC:   13,
		MinuteUTC: 45,
		Recurrence: models.Recurrence{
			Type:     models.RecurrenceWeekdays,
			Weekdays: []time.Weekday{time.Friday, time.Monday},
		},
		Enabled:       true,
		SoundID:       "alert-03",
		SnoozeMinutes: 10,
		CreatedAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestInitSeedsBuiltInAlerts(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	alerts, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := models.FixedAlerts()
	if len(alerts) != len(want) {
		t.Fatalf("List() = %d alerts, want %d", len(alerts), len(want))
	}
	for _, w := range want {
		got, err := store.Get(ctx, w.ID)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", w.ID, err)
		}
		if got.Label != w.Label || !got.Fixed || got.HourUTC != w.HourUTC {
			t.Errorf("Get(%s) = %+v, want %+v", w.ID, got, w)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	store, path := setupTestStore(t)
	ctx := context.Background()
	if err := store.Create(ctx, userAlert("keep")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	store.Close()

	again := NewStore(path)
	if err := again.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer again.Close()

	alerts, err := again.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(alerts) != len(models.FixedAlerts())+1 {
		t.Errorf("List() = %d alerts after re-init, want %d", len(alerts), len(models.FixedAlerts())+1)
	}
}

func TestInitMigratesBuiltInIDs(t *testing.T) {
	store, path := setupTestStore(t)
	ctx := context.Background()
	first := models.FixedAlerts()[0]
	second := models.FixedAlerts()[1]

	// Swap the ids of the first two built-ins.
	tmp := models.UserID("tmp")
	for _, step := range []struct{ from, to models.AlertID }{
		{first.ID, tmp}, {second.ID, first.ID}, {tmp, second.ID},
	} {
		if err := store.RenameAlert(ctx, step.from, step.to); err != nil {
			t.Fatalf("RenameAlert(%s, %s) error = %v", step.from, step.to, err)
		}
	}
	got, _ := store.Get(ctx, first.ID)
	if got.Label != second.Label {
		t.Fatalf("swap setup failed: %s has label %q", first.ID, got.Label)
	}
	store.Close()

	again := NewStore(path)
	if err := again.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer again.Close()

	for _, want := range []models.Alert{first, second} {
		got, err := again.Get(ctx, want.ID)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", want.ID, err)
		}
		if got.Label != want.Label {
			t.Errorf("Get(%s).Label = %q, want %q", want.ID, got.Label, want.Label)
		}
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	a := userAlert("abc")

	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Label != a.Label || got.SoundID != a.SoundID || got.SnoozeMinutes != 10 || !got.Enabled {
		t.Errorf("Get() = %+v, want %+v", got, a)
	}
	if len(got.Recurrence.Weekdays) != 2 || got.Recurrence.Weekdays[0] != time.Monday {
		t.Errorf("Weekdays = %v, want sorted [Monday Friday]", got.Recurrence.Weekdays)
	}
	if !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, a.CreatedAt)
	}

	if err := store.Create(ctx, a); !errors.Is(err, storage.ErrExists) {
		t.Errorf("duplicate Create() error = %v, want ErrExists", err)
	}
}

func TestCreateDateBased(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	a := userAlert("monthly")
	a.Recurrence = models.Recurrence{Type: models.RecurrenceMonthly, Date: "2024-01-31"}

	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Recurrence.Type != models.RecurrenceMonthly || got.Recurrence.Date != "2024-01-31" || got.Recurrence.Weekdays != nil {
		t.Errorf("Recurrence = %+v", got.Recurrence)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	store, _ := setupTestStore(t)
	a := userAlert("bad")
	a.HourUTC = 24
	if err := store.Create(context.Background(), a); err == nil {
		t.Error("Create() accepted hour 24")
	}
}

func TestUpdate(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	a := userAlert("upd")
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a.HourUTC = 8
	a.Label = "London open"
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := store.Get(ctx, a.ID)
	if got.HourUTC != 8 || got.Label != "London open" {
		t.Errorf("Get() after update = %+v", got)
	}

	missing := userAlert("missing")
	if err := store.Update(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateBuiltIn(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	fixed := models.FixedAlerts()[2]

	fixed.SoundID = "alert-05"
	fixed.Enabled = false
	if err := store.Update(ctx, fixed); err != nil {
		t.Fatalf("Update(sound) error = %v", err)
	}

	fixed.HourUTC = (fixed.HourUTC + 1) % 24
	if err := store.Update(ctx, fixed); !errors.Is(err, storage.ErrFixedAlert) {
		t.Errorf("Update(time) error = %v, want ErrFixedAlert", err)
	}
}

func TestToggle(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	id := models.FixedID(1)

	got, err := store.Toggle(ctx, id, false)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if got.Enabled {
		t.Error("Toggle(false) left alert enabled")
	}
	got, err = store.Toggle(ctx, id, true)
	if err != nil || !got.Enabled {
		t.Errorf("Toggle(true) = %+v, %v", got, err)
	}

	if _, err := store.Toggle(ctx, models.UserID("nope"), true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Toggle(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	a := userAlert("del")
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, models.FixedID(1)); !errors.Is(err, storage.ErrFixedAlert) {
		t.Errorf("Delete(fixed) error = %v, want ErrFixedAlert", err)
	}
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.db"))
	if err := store.Load(); err == nil {
		t.Error("Load() on missing database should fail")
	}
}

func TestLoadAfterInit(t *testing.T) {
	_, path := setupTestStore(t)
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer store.Close()
	if store.GetDB() == nil {
		t.Error("GetDB() = nil after Load")
	}
	if store.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", store.GetConfigPath(), path)
	}
}
