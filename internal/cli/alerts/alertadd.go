package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/models"
)

type AlertAddCmd struct {
	Label    string `arg:"" help:"Alert label."`
	Time     string `help:"Trigger time in UTC (HH:MM)." required:""`
	Weekdays string `help:"Comma-separated weekdays (e.g. mon,wed,fri). Defaults to Monday to Friday." xor:"shape"`
	Once     string `help:"Fire once on this date (YYYY-MM-DD)." xor:"shape"`
	Weekly   string `help:"Fire every 7 days starting on this date (YYYY-MM-DD)." xor:"shape"`
	Monthly  string `help:"Fire on this date's day of month, skipping months without it (YYYY-MM-DD)." xor:"shape"`
	Sound    string `help:"Sound id (alert-01 to alert-05)."`
	Snooze   int    `help:"Snooze length in minutes. Zero uses the default."`
	Duration int    `help:"Foreground playback length in seconds. Zero uses the default."`
	Disabled bool   `help:"Create the alert disabled."`
}

// Build turns the flags into a validated alert created at now.
func (c *AlertAddCmd) Build(now time.Time) (models.Alert, error) {
	hour, minute, err := cli.ParseClock(c.Time)
	if err != nil {
		return models.Alert{}, err
	}

	rec, err := recurrenceFromFlags(c.Weekdays, c.Once, c.Weekly, c.Monthly)
	if err != nil {
		return models.Alert{}, err
	}
	if rec.Type == "" {
		rec = models.Recurrence{
			Type:     models.RecurrenceWeekdays,
			Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		}
	}

	a := models.Alert{
		ID:            models.NewUserID(),
		Label:         c.Label,
		HourUTC:       hour,
		MinuteUTC:     minute,
		Recurrence:    rec,
		Enabled:       !c.Disabled,
		SoundID:       c.Sound,
		SnoozeMinutes: c.Snooze,
		DurationSec:   c.Duration,
		CreatedAt:     now.UTC(),
	}
	if err := a.Validate(); err != nil {
		return models.Alert{}, err
	}
	return a, nil
}

// recurrenceFromFlags returns the zero Recurrence when no shape flag is set.
func recurrenceFromFlags(weekdays, once, weekly, monthly string) (models.Recurrence, error) {
	switch {
	case weekdays != "":
		days, err := cli.ParseWeekdays(weekdays)
		if err != nil {
			return models.Recurrence{}, fmt.Errorf("failed to parse weekdays: %w", err)
		}
		return models.Recurrence{Type: models.RecurrenceWeekdays, Weekdays: days}, nil
	case once != "":
		return models.Recurrence{Type: models.RecurrenceOnce, Date: once}, nil
	case weekly != "":
		return models.Recurrence{Type: models.RecurrenceWeekly, Date: weekly}, nil
	case monthly != "":
		return models.Recurrence{Type: models.RecurrenceMonthly, Date: monthly}, nil
	}
	return models.Recurrence{}, nil
}

func (c *AlertAddCmd) Run(ctx *cli.Context) error {
	a, err := c.Build(ctx.Now())
	if err != nil {
		return err
	}

	if err := ctx.Store.Create(context.Background(), a); err != nil {
		return fmt.Errorf("failed to add alert: %w", err)
	}

	ctx.Printf("✓ Alert added: %s at %s UTC (%s)\n", a.DisplayLabel(), a.TimeString(), a.FormatRecurrence())
	ctx.Printf("  ID: %s\n", a.ID)
	ctx.NotifyDaemon()
	return nil
}
