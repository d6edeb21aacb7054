// Package recurrence resolves when an alert fires.
//
// All arithmetic is done on UTC wall-clock fields. Next answers "when is the
// next occurrence strictly after now" for the background and exact-alarm
// paths; Due answers "does the current minute match" for the foreground loop.
package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/models"
)

// monthScanLimit bounds the monthly search. Any day-of-month 1..31 appears at
// least once in every 12 consecutive months, so this is never reached for a
// valid anchor.
const monthScanLimit = 24

// Next returns the next trigger instant strictly after now. The boolean is false
// when the alert has no future occurrence: a one-time alert in the past, or an
// invalid recurrence.
func Next(a models.Alert, now time.Time) (time.Time, bool) {
	now = now.UTC()

	switch a.Recurrence.Type {
	case models.RecurrenceWeekdays:
		return nextWeekday(a, now)
	case models.RecurrenceOnce:
		anchor, err := a.Anchor()
		if err != nil || !anchor.After(now) {
			return time.Time{}, false
		}
		return anchor, true
	case models.RecurrenceWeekly:
		anchor, err := a.Anchor()
		if err != nil {
			return time.Time{}, false
		}
		return nextWeekly(anchor, now), true
	case models.RecurrenceMonthly:
		anchor, err := a.Anchor()
		if err != nil {
			return time.Time{}, false
		}
		return nextMonthly(anchor, now)
	default:
		return time.Time{}, false
	}
}

// nextWeekday scans today and the following seven days so a single-day set
// whose time has already passed today resolves to the same weekday next week.
func nextWeekday(a models.Alert, now time.Time) (time.Time, bool) {
	if len(a.Recurrence.Weekdays) == 0 {
		return time.Time{}, false
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for offset := 0; offset <= 7; offset++ {
		day := midnight.AddDate(0, 0, offset)
		if !a.Recurrence.HasWeekday(day.Weekday()) {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), a.HourUTC, a.MinuteUTC, 0, 0, time.UTC)
		if candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func nextWeekly(anchor, now time.Time) time.Time {
	if anchor.After(now) {
		return anchor
	}
	weeks := int(now.Sub(anchor) / (7 * 24 * time.Hour))
	t := anchor.AddDate(0, 0, 7*weeks)
	for !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// nextMonthly walks forward month by month from the anchor, skipping months
// that do not contain the anchor's day. It never clamps to month end.
func nextMonthly(anchor, now time.Time) (time.Time, bool) {
	day := anchor.Day()

	start := 0
	if now.After(anchor) {
		start = (now.Year()-anchor.Year())*12 + int(now.Month()-anchor.Month()) - 1
		if start < 0 {
			start = 0
		}
	}

	for k := start; k < start+monthScanLimit; k++ {
		candidate := time.Date(anchor.Year(), anchor.Month()+time.Month(k), day, anchor.Hour(), anchor.Minute(), 0, 0, time.UTC)
		if candidate.Day() != day {
			// Normalised into the following month, so this month has no such day.
			continue
		}
		if candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// CronExpr renders the minute/hour/day part of an alert as a five-field cron
// expression. Anchor lower bounds and the year of one-time alerts are not
// expressible and are checked separately by Due.
func CronExpr(a models.Alert) (string, error) {
	switch a.Recurrence.Type {
	case models.RecurrenceWeekdays:
		if len(a.Recurrence.Weekdays) == 0 {
			return "", fmt.Errorf("weekday recurrence has no days")
		}
		days := append([]time.Weekday(nil), a.Recurrence.Weekdays...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		parts := make([]string, len(days))
		for i, d := range days {
			parts[i] = strconv.Itoa(int(d))
		}
		return fmt.Sprintf("%d %d * * %s", a.MinuteUTC, a.HourUTC, strings.Join(parts, ",")), nil
	case models.RecurrenceOnce, models.RecurrenceWeekly, models.RecurrenceMonthly:
		anchor, err := a.Anchor()
		if err != nil {
			return "", err
		}
		switch a.Recurrence.Type {
		case models.RecurrenceOnce:
			return fmt.Sprintf("%d %d %d %d *", a.MinuteUTC, a.HourUTC, anchor.Day(), int(anchor.Month())), nil
		case models.RecurrenceWeekly:
			return fmt.Sprintf("%d %d * * %d", a.MinuteUTC, a.HourUTC, int(anchor.Weekday())), nil
		default:
			return fmt.Sprintf("%d %d %d * *", a.MinuteUTC, a.HourUTC, anchor.Day()), nil
		}
	default:
		return "", fmt.Errorf("invalid recurrence type: %q", a.Recurrence.Type)
	}
}

// Due reports whether now falls in the alert's trigger minute on a day the
// alert is scheduled for. It ignores Enabled and market state.
func Due(a models.Alert, now time.Time) bool {
	now = now.UTC()
	if now.Hour() != a.HourUTC || now.Minute() != a.MinuteUTC {
		return false
	}

	expr, err := CronExpr(a)
	if err != nil {
		logger.Debug("Alert has no cron form", "alert", a.ID, "error", err)
		return false
	}

	due, err := gronx.New().IsDue(expr, now.Truncate(time.Minute))
	if err != nil {
		logger.Warn("Failed to evaluate alert schedule", "alert", a.ID, "expr", expr, "error", err)
		return false
	}
	if !due {
		return false
	}

	if !a.Recurrence.IsDateBased() {
		return true
	}

	anchor, err := a.Anchor()
	if err != nil {
		return false
	}
	if a.Recurrence.Type == models.RecurrenceOnce {
		return now.Year() == anchor.Year()
	}
	return !now.Before(anchor)
}
