// Package dedup suppresses repeat deliveries of the same trigger minute.
package dedup

import (
	"sync"
	"time"

	"github.com/julianstephens/tradertime/internal/models"
)

// Key identifies one trigger of one alert.
type Key struct {
	AlertID models.AlertID
	Hour    int
	Minute  int
	Day     int // day of month, so date-based alerts firing on consecutive days differ
}

// KeyFor builds the key for alert id matched at t (UTC).
func KeyFor(id models.AlertID, t time.Time) Key {
	t = t.UTC()
	return Key{AlertID: id, Hour: t.Hour(), Minute: t.Minute(), Day: t.Day()}
}

// Mode selects how much history the deduplicator keeps.
type Mode int

const (
	// ModePerAlert remembers the last key of every alert, so two alerts
	// sharing a trigger minute both fire and neither repeats.
	ModePerAlert Mode = iota
	// ModeSingle remembers only the most recent key across all alerts.
	ModeSingle
)

func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "per-alert"
}

// ParseMode maps a config value to a Mode. Unknown values select ModePerAlert.
func ParseMode(s string) Mode {
	if s == "single" {
		return ModeSingle
	}
	return ModePerAlert
}

// Deduplicator is safe for concurrent use.
type Deduplicator struct {
	mu       sync.Mutex
	mode     Mode
	last     Key
	hasLast  bool
	perAlert map[models.AlertID]Key
}

func New(mode Mode) *Deduplicator {
	return &Deduplicator{
		mode:     mode,
		perAlert: make(map[models.AlertID]Key),
	}
}

// Observe records k and reports whether it is new. A false result means the
// trigger was already delivered and must be skipped.
func (d *Deduplicator) Observe(k Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mode == ModeSingle {
		if d.hasLast && d.last == k {
			return false
		}
		d.last, d.hasLast = k, true
		return true
	}

	if prev, ok := d.perAlert[k.AlertID]; ok && prev == k {
		return false
	}
	d.perAlert[k.AlertID] = k
	return true
}

// Reset forgets every recorded key.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last, d.hasLast = Key{}, false
	clear(d.perAlert)
}

func (d *Deduplicator) Mode() Mode {
	return d.mode
}
