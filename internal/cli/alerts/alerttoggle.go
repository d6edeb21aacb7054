package alerts

import (
	"context"
	"fmt"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/models"
)

type AlertToggleCmd struct {
	ID  string `arg:"" help:"Alert ID (fixed:N or user:KEY)."`
	On  bool   `help:"Enable the alert." xor:"state"`
	Off bool   `help:"Disable the alert." xor:"state"`
}

func (c *AlertToggleCmd) Run(ctx *cli.Context) error {
	id, err := models.ParseAlertID(c.ID)
	if err != nil {
		return err
	}

	bg := context.Background()
	stored, err := ctx.Store.Get(bg, id)
	if err != nil {
		return fmt.Errorf("alert not found: %w", err)
	}

	enabled := !stored.Enabled
	switch {
	case c.On:
		enabled = true
	case c.Off:
		enabled = false
	}

	a, err := ctx.Store.Toggle(bg, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to toggle alert: %w", err)
	}

	state := "disabled"
	if a.Enabled {
		state = "enabled"
	}
	ctx.Printf("✓ Alert %s: %s at %s UTC\n", state, a.DisplayLabel(), a.TimeString())
	ctx.NotifyDaemon()
	return nil
}
