// Package calendar exports alerts as an iCalendar feed so session times can be
// shown next to other appointments.
package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/recurrence"
)

const productID = "-//julianstephens//" + constants.AppName + "//EN"

var byDay = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Build returns a calendar with one event per enabled alert that still has a
// future occurrence. Each event carries a display alarm at its start.
func Build(alerts []models.Alert, now time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, a := range alerts {
		if !a.Enabled {
			continue
		}
		event, ok, err := eventFor(a, now)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", a.ID, err)
		}
		if ok {
			cal.Children = append(cal.Children, event.Component)
		}
	}
	return cal, nil
}

// Export writes the calendar built from alerts to w.
func Export(w io.Writer, alerts []models.Alert, now time.Time) error {
	cal, err := Build(alerts, now)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func eventFor(a models.Alert, now time.Time) (*ical.Event, bool, error) {
	next, ok := recurrence.Next(a, now)
	if !ok {
		return nil, false, nil
	}

	start := next
	var rule *rrule.ROption
	switch a.Recurrence.Type {
	case models.RecurrenceWeekdays:
		days := make([]rrule.Weekday, 0, len(a.Recurrence.Weekdays))
		for _, d := range a.Recurrence.Weekdays {
			days = append(days, byDay[d])
		}
		rule = &rrule.ROption{Freq: rrule.WEEKLY, Byweekday: days}
	case models.RecurrenceWeekly, models.RecurrenceMonthly:
		anchor, err := a.Anchor()
		if err != nil {
			return nil, false, err
		}
		start = anchor
		if a.Recurrence.Type == models.RecurrenceWeekly {
			rule = &rrule.ROption{Freq: rrule.WEEKLY}
		} else {
			// Months without the anchor day produce no instance, same as
			// the resolver.
			rule = &rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{anchor.Day()}}
		}
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, a.ID.String()+"@"+constants.AppName)
	event.Props.SetText(ical.PropSummary, a.DisplayLabel())
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, start.UTC().Add(time.Minute))
	if a.Fixed {
		event.Props.SetText(ical.PropCategories, "SESSION")
	}
	if rule != nil {
		event.Props.SetRecurrenceRule(rule)
	}

	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, a.DisplayLabel())
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = "PT0S"
	alarm.Props.Set(trigger)
	event.Children = append(event.Children, alarm)

	return event, true, nil
}
