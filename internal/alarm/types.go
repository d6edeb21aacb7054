package alarm

import (
	"time"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/models"
)

// Alarm is one armed trigger.
type Alarm struct {
	ID            models.AlertID `json:"id"`
	Label         string         `json:"label"`
	At            time.Time      `json:"at"`
	SoundID       string         `json:"sound_id"`
	SnoozeMinutes int            `json:"snooze_minutes,omitempty"`
	// Snoozed marks the re-fire of a snoozed alarm. It is keyed separately so
	// the alert's next regular occurrence can stay armed alongside it.
	Snoozed bool `json:"snoozed,omitempty"`
}

// FromAlert builds the alarm for the occurrence of a at the given instant.
func FromAlert(a models.Alert, at time.Time) Alarm {
	return Alarm{
		ID:            a.ID,
		Label:         a.DisplayLabel(),
		At:            at,
		SoundID:       a.Sound(),
		SnoozeMinutes: a.SnoozeMinutes,
	}
}

// alert is the view of a the market policy needs.
func (a Alarm) alert() models.Alert {
	return models.Alert{ID: a.ID, Label: a.Label, Fixed: a.ID.IsFixed()}
}

func (a Alarm) snoozeDelay() time.Duration {
	if a.SnoozeMinutes <= 0 {
		return constants.DefaultSnoozeMinutes * time.Minute
	}
	return time.Duration(a.SnoozeMinutes) * time.Minute
}

type alarmKey struct {
	id      models.AlertID
	snoozed bool
}

func (a Alarm) key() alarmKey {
	return alarmKey{id: a.ID, snoozed: a.Snoozed}
}

// Ringing describes the alarm currently sounding.
type Ringing struct {
	Alarm     Alarm     `json:"alarm"`
	StartedAt time.Time `json:"started_at"`
}

// Permission is the exact-alarm permission state reported to the UI.
type Permission struct {
	Granted         bool `json:"granted"`
	NeedsUserAction bool `json:"needsUserAction"`
}
