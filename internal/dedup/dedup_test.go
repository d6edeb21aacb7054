package dedup

import (
	"testing"
	"time"

	"github.com/julianstephens/tradertime/internal/models"
)

func TestKeyFor(t *testing.T) {
	at := time.Date(2024, 1, 8, 7, 0, 40, 0, time.FixedZone("EST", -5*3600))
	k := KeyFor(models.FixedID(4), at)
	want := Key{AlertID: models.FixedID(4), Hour: 12, Minute: 0, Day: 8}
	if k != want {
		t.Errorf("KeyFor() = %+v, want %+v", k, want)
	}
}

func TestObserve(t *testing.T) {
	a := models.FixedID(1)
	b := models.UserID("b")
	t0 := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		mode  Mode
		keys  []Key
		wants []bool
	}{
		{
			name:  "repeat tick in same minute suppressed",
			mode:  ModePerAlert,
			keys:  []Key{KeyFor(a, t0), KeyFor(a, t0.Add(10*time.Second))},
			wants: []bool{true, false},
		},
		{
			name:  "next day fires again",
			mode:  ModePerAlert,
			keys:  []Key{KeyFor(a, t0), KeyFor(a, t0.AddDate(0, 0, 1))},
			wants: []bool{true, true},
		},
		{
			name:  "two alerts same minute both fire",
			mode:  ModePerAlert,
			keys:  []Key{KeyFor(a, t0), KeyFor(b, t0), KeyFor(a, t0), KeyFor(b, t0)},
			wants: []bool{true, true, false, false},
		},
		{
			name:  "single mode interleaving re-fires",
			mode:  ModeSingle,
			keys:  []Key{KeyFor(a, t0), KeyFor(b, t0), KeyFor(a, t0)},
			wants: []bool{true, true, true},
		},
		{
			name:  "single mode repeat suppressed",
			mode:  ModeSingle,
			keys:  []Key{KeyFor(a, t0), KeyFor(a, t0)},
			wants: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.mode)
			for i, k := range tt.keys {
				if got := d.Observe(k); got != tt.wants[i] {
					t.Errorf("Observe(#%d %+v) = %v, want %v", i, k, got, tt.wants[i])
				}
			}
		})
	}
}

func TestReset(t *testing.T) {
	for _, mode := range []Mode{ModePerAlert, ModeSingle} {
		t.Run(mode.String(), func(t *testing.T) {
			d := New(mode)
			k := KeyFor(models.FixedID(1), time.Now())
			d.Observe(k)
			d.Reset()
			if !d.Observe(k) {
				t.Error("key should be new after Reset")
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("single") != ModeSingle || ParseMode("per-alert") != ModePerAlert || ParseMode("") != ModePerAlert {
		t.Error("ParseMode returned unexpected mode")
	}
}
