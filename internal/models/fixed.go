package models

import "time"

// SessionOpenLabel labels the fixed alert that marks the weekly market open.
// It is the only fixed alert allowed to fire while the market is closed.
const SessionOpenLabel = "Start of Sydney session"

var weekdaysMonFri = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

type fixedEntry struct {
	hour, minute int
	days         []time.Weekday
	label        string
}

var fixedCatalogue = []fixedEntry{
	{21, 0, []time.Weekday{time.Sunday}, SessionOpenLabel},
	{0, 0, weekdaysMonFri, "Overlap of Tokyo + Sydney session"},
	{6, 0, weekdaysMonFri, "End of Sydney session"},
	{7, 0, weekdaysMonFri, "Overlap Tokyo + London + Frankfurt"},
	{9, 0, weekdaysMonFri, "End of Tokyo session"},
	{13, 0, weekdaysMonFri, "New York overlap + London + Frankfurt"},
	{15, 0, weekdaysMonFri, "End of Frankfurt session"},
	{16, 0, weekdaysMonFri, "End of London session"},
	{21, 0, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday}, "End of New York session and start of Sydney session"},
	{21, 0, []time.Weekday{time.Friday}, "End of New York session"},
}

// FixedAlerts returns fresh copies of the built-in session alerts, indexed from 1.
func FixedAlerts() []Alert {
	alerts := make([]Alert, len(fixedCatalogue))
	for i, e := range fixedCatalogue {
		alerts[i] = Alert{
			ID:        FixedID(i + 1),
			Label:     e.label,
			HourUTC:   e.hour,
			MinuteUTC: e.minute,
			Recurrence: Recurrence{
				Type:     RecurrenceWeekdays,
				Weekdays: append([]time.Weekday(nil), e.days...),
			},
			Fixed:       true,
			Enabled:     true,
			SoundID:     DefaultSoundID,
			DurationSec: 10,
		}
	}
	return alerts
}

// FixedAlertByLabel looks up a catalogue entry by label.
func FixedAlertByLabel(label string) (Alert, bool) {
	for _, a := range FixedAlerts() {
		if a.Label == label {
			return a, true
		}
	}
	return Alert{}, false
}

// IDChange renames a stored alert.
type IDChange struct {
	From AlertID
	To   AlertID
}

// PlanFixedIDMigration matches stored fixed alerts to the catalogue by label and
// returns the renames needed for their ids to agree with catalogue indexes.
// Stored fixed alerts whose label is not in the catalogue are left alone.
func PlanFixedIDMigration(stored []Alert) []IDChange {
	var changes []IDChange
	for _, a := range stored {
		if !a.Fixed {
			continue
		}
		want, ok := FixedAlertByLabel(a.Label)
		if !ok || want.ID == a.ID {
			continue
		}
		changes = append(changes, IDChange{From: a.ID, To: want.ID})
	}
	return changes
}

// MissingFixedAlerts returns catalogue entries whose label is not yet stored.
func MissingFixedAlerts(stored []Alert) []Alert {
	have := make(map[string]bool, len(stored))
	for _, a := range stored {
		if a.Fixed {
			have[a.Label] = true
		}
	}

	var missing []Alert
	for _, a := range FixedAlerts() {
		if !have[a.Label] {
			missing = append(missing, a)
		}
	}
	return missing
}
