package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/storage"
)

type AlertEditCmd struct {
	ID       string  `arg:"" help:"Alert ID (fixed:N or user:KEY)."`
	Label    *string `help:"New label."`
	Time     *string `help:"New trigger time in UTC (HH:MM)."`
	Weekdays string  `help:"Replace the recurrence with these weekdays." xor:"shape"`
	Once     string  `help:"Replace the recurrence with a one-time date." xor:"shape"`
	Weekly   string  `help:"Replace the recurrence with a weekly anchor date." xor:"shape"`
	Monthly  string  `help:"Replace the recurrence with a monthly anchor date." xor:"shape"`
	Sound    *string `help:"Sound id."`
	Snooze   *int    `help:"Snooze length in minutes."`
	Duration *int    `help:"Foreground playback length in seconds."`
}

// Apply returns stored with the requested changes.
func (c *AlertEditCmd) Apply(stored models.Alert) (models.Alert, error) {
	a := stored
	if c.Label != nil {
		a.Label = *c.Label
	}
	if c.Time != nil {
		h, m, err := cli.ParseClock(*c.Time)
		if err != nil {
			return models.Alert{}, err
		}
		a.HourUTC, a.MinuteUTC = h, m
	}
	rec, err := recurrenceFromFlags(c.Weekdays, c.Once, c.Weekly, c.Monthly)
	if err != nil {
		return models.Alert{}, err
	}
	if rec.Type != "" {
		a.Recurrence = rec
	}
	if c.Sound != nil {
		a.SoundID = *c.Sound
	}
	if c.Snooze != nil {
		a.SnoozeMinutes = *c.Snooze
	}
	if c.Duration != nil {
		a.DurationSec = *c.Duration
	}
	return a, nil
}

func (c *AlertEditCmd) Run(ctx *cli.Context) error {
	id, err := models.ParseAlertID(c.ID)
	if err != nil {
		return err
	}

	bg := context.Background()
	stored, err := ctx.Store.Get(bg, id)
	if err != nil {
		return fmt.Errorf("alert not found: %w", err)
	}

	updated, err := c.Apply(stored)
	if err != nil {
		return err
	}
	if err := ctx.Store.Update(bg, updated); err != nil {
		if errors.Is(err, storage.ErrFixedAlert) {
			return fmt.Errorf("built-in session alerts only allow sound, snooze, duration and enabled changes: %w", err)
		}
		return fmt.Errorf("failed to update alert: %w", err)
	}

	ctx.Printf("✓ Alert updated: %s at %s UTC (%s)\n", updated.DisplayLabel(), updated.TimeString(), updated.FormatRecurrence())
	ctx.NotifyDaemon()
	return nil
}
