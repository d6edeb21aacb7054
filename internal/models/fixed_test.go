package models

import (
	"testing"
	"time"
)

func TestFixedAlertsCatalogue(t *testing.T) {
	alerts := FixedAlerts()
	if len(alerts) != 10 {
		t.Fatalf("expected 10 fixed alerts, got %d", len(alerts))
	}

	for i, a := range alerts {
		if a.ID != FixedID(i+1) {
			t.Errorf("alert %d has id %v", i, a.ID)
		}
		if err := a.Validate(); err != nil {
			t.Errorf("alert %q invalid: %v", a.Label, err)
		}
	}

	open := alerts[0]
	if open.Label != SessionOpenLabel || open.HourUTC != 21 || !open.Recurrence.HasWeekday(time.Sunday) {
		t.Errorf("unexpected session-open alert: %+v", open)
	}

	// Copies must not share weekday slices.
	alerts[1].Recurrence.Weekdays[0] = time.Saturday
	if FixedAlerts()[1].Recurrence.Weekdays[0] != time.Monday {
		t.Error("FixedAlerts() leaked shared state")
	}
}

func TestPlanFixedIDMigration(t *testing.T) {
	stored := FixedAlerts()
	// Simulate an older install where two ids were swapped.
	stored[2].ID, stored[3].ID = stored[3].ID, stored[2].ID
	stored = append(stored, Alert{ID: FixedID(42), Label: "Retired session", Fixed: true})
	stored = append(stored, Alert{ID: UserID("u"), Label: "End of Tokyo session"})

	changes := PlanFixedIDMigration(stored)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", changes)
	}
	if changes[0].From != FixedID(4) || changes[0].To != FixedID(3) {
		t.Errorf("unexpected first change: %+v", changes[0])
	}
	if changes[1].From != FixedID(3) || changes[1].To != FixedID(4) {
		t.Errorf("unexpected second change: %+v", changes[1])
	}
}

func TestMissingFixedAlerts(t *testing.T) {
	stored := FixedAlerts()[:4]
	missing := MissingFixedAlerts(stored)
	if len(missing) != 6 {
		t.Fatalf("expected 6 missing alerts, got %d", len(missing))
	}
	if missing[0].ID != FixedID(5) {
		t.Errorf("first missing = %v, want fixed:5", missing[0].ID)
	}
	if len(MissingFixedAlerts(FixedAlerts())) != 0 {
		t.Error("full catalogue should have nothing missing")
	}
}

func TestResolveSoundID(t *testing.T) {
	if ResolveSoundID("alert-02") != "alert-02" {
		t.Error("known sound should resolve to itself")
	}
	if ResolveSoundID("") != DefaultSoundID || ResolveSoundID("nope") != DefaultSoundID {
		t.Error("unknown sound should resolve to default")
	}
}
