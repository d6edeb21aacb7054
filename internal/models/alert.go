package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/tradertime/internal/constants"
)

// RecurrenceType selects the repeat shape of an alert.
type RecurrenceType string

const (
	// RecurrenceWeekdays fires on every listed weekday.
	RecurrenceWeekdays RecurrenceType = "weekdays"
	// RecurrenceOnce fires a single time on the anchor date.
	RecurrenceOnce RecurrenceType = "once"
	// RecurrenceWeekly fires every 7 days starting at the anchor date.
	RecurrenceWeekly RecurrenceType = "weekly"
	// RecurrenceMonthly fires on the anchor's day-of-month, skipping months that lack it.
	RecurrenceMonthly RecurrenceType = "monthly"
)

type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Weekdays []time.Weekday `json:"weekdays,omitempty"` // 0=Sunday..6=Saturday
	Date     string         `json:"date,omitempty"`     // YYYY-MM-DD anchor, UTC
}

// IsDateBased reports whether the recurrence is anchored to a calendar date.
func (r Recurrence) IsDateBased() bool {
	switch r.Type {
	case RecurrenceOnce, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// HasWeekday reports whether wd is in the weekday set.
func (r Recurrence) HasWeekday(wd time.Weekday) bool {
	for _, d := range r.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

func (r Recurrence) Validate() error {
	switch r.Type {
	case RecurrenceWeekdays:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("weekdays must be specified for weekday recurrence")
		}
		if r.Date != "" {
			return fmt.Errorf("weekday recurrence cannot also carry a date")
		}
		for _, wd := range r.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return fmt.Errorf("invalid weekday %d (expected 0-6)", wd)
			}
		}
	case RecurrenceOnce, RecurrenceWeekly, RecurrenceMonthly:
		if r.Date == "" {
			return fmt.Errorf("date must be specified for %s recurrence", r.Type)
		}
		if len(r.Weekdays) > 0 {
			return fmt.Errorf("%s recurrence cannot also carry weekdays", r.Type)
		}
		if _, err := time.Parse(constants.DateFormat, r.Date); err != nil {
			return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
		}
	default:
		return fmt.Errorf("invalid recurrence type: %q", r.Type)
	}
	return nil
}

type Alert struct {
	ID            AlertID    `json:"id"`
	Label         string     `json:"label"`
	HourUTC       int        `json:"hour_utc"`
	MinuteUTC     int        `json:"minute_utc"`
	Recurrence    Recurrence `json:"recurrence"`
	Fixed         bool       `json:"is_fixed"`
	Enabled       bool       `json:"is_enabled"`
	SoundID       string     `json:"sound_id,omitempty"`
	SnoozeMinutes int        `json:"snooze_minutes,omitempty"`
	DurationSec   int        `json:"duration_sec,omitempty"` // foreground playback length
	CreatedAt     time.Time  `json:"created_at"`
}

func (a *Alert) Validate() error {
	if a.HourUTC < 0 || a.HourUTC > 23 {
		return fmt.Errorf("hour must be between 0 and 23, got %d", a.HourUTC)
	}
	if a.MinuteUTC < 0 || a.MinuteUTC > 59 {
		return fmt.Errorf("minute must be between 0 and 59, got %d", a.MinuteUTC)
	}
	if err := a.Recurrence.Validate(); err != nil {
		return err
	}
	if a.Fixed {
		if !a.ID.IsFixed() {
			return fmt.Errorf("fixed alert must carry a fixed id, got %q", a.ID)
		}
		if a.Recurrence.Type != RecurrenceWeekdays {
			return fmt.Errorf("fixed alert must use weekday recurrence")
		}
	} else if a.ID.IsFixed() {
		return fmt.Errorf("user alert cannot carry fixed id %q", a.ID)
	}
	if a.SoundID != "" {
		if _, ok := SoundByID(a.SoundID); !ok {
			return fmt.Errorf("unknown sound %q", a.SoundID)
		}
	}
	if a.SnoozeMinutes < 0 {
		return fmt.Errorf("snooze minutes cannot be negative")
	}
	if a.DurationSec < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	return nil
}

// Anchor returns the first occurrence instant of a date-based alert.
func (a *Alert) Anchor() (time.Time, error) {
	d, err := time.Parse(constants.DateFormat, a.Recurrence.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid anchor date %q: %w", a.Recurrence.Date, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), a.HourUTC, a.MinuteUTC, 0, 0, time.UTC), nil
}

// TimeString returns the trigger time as HH:MM UTC.
func (a *Alert) TimeString() string {
	return fmt.Sprintf("%02d:%02d", a.HourUTC, a.MinuteUTC)
}

// DisplayLabel returns the label shown to the user.
func (a *Alert) DisplayLabel() string {
	if strings.TrimSpace(a.Label) == "" {
		return "Alarm"
	}
	return a.Label
}

// Sound returns the catalogue sound to play, falling back to the default.
func (a *Alert) Sound() string {
	return ResolveSoundID(a.SoundID)
}

// Snooze returns the snooze delay, falling back to the default.
func (a *Alert) Snooze() time.Duration {
	if a.SnoozeMinutes <= 0 {
		return constants.DefaultSnoozeMinutes * time.Minute
	}
	return time.Duration(a.SnoozeMinutes) * time.Minute
}

// Playback returns how long the foreground scheduler plays the alert sound.
func (a *Alert) Playback() time.Duration {
	if a.DurationSec <= 0 {
		return constants.DefaultPlaybackDuration * time.Second
	}
	return time.Duration(a.DurationSec) * time.Second
}

// FormatRecurrence returns a human-readable string describing the alert's recurrence pattern
func (a *Alert) FormatRecurrence() string {
	switch a.Recurrence.Type {
	case RecurrenceWeekdays:
		days := append([]time.Weekday(nil), a.Recurrence.Weekdays...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		names := make([]string, len(days))
		for i, wd := range days {
			names[i] = wd.String()[:3]
		}
		return fmt.Sprintf("Weekly: %s", strings.Join(names, ", "))
	case RecurrenceOnce:
		return fmt.Sprintf("Once on %s", a.Recurrence.Date)
	case RecurrenceWeekly:
		return fmt.Sprintf("Every week from %s", a.Recurrence.Date)
	case RecurrenceMonthly:
		day := a.Recurrence.Date
		if d, err := time.Parse(constants.DateFormat, day); err == nil {
			return fmt.Sprintf("Monthly on day %d from %s", d.Day(), a.Recurrence.Date)
		}
		return fmt.Sprintf("Monthly from %s", day)
	default:
		return "Unknown"
	}
}
