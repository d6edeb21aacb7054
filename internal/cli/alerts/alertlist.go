package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/recurrence"
)

type AlertListCmd struct {
	Enabled bool `help:"Only show enabled alerts."`
}

func (c *AlertListCmd) Run(ctx *cli.Context) error {
	alerts, err := ctx.Store.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}

	if len(alerts) == 0 {
		ctx.Printf("No alerts configured.\n")
		return nil
	}

	now := ctx.Now()
	ctx.Printf("%-44s %-24s %-6s %-28s %-4s %s\n", "ID", "Label", "UTC", "Recurrence", "On", "Next")
	ctx.Printf("%s\n", strings.Repeat("-", 126))

	for _, a := range alerts {
		if c.Enabled && !a.Enabled {
			continue
		}

		label := a.DisplayLabel()
		if len(label) > 22 {
			label = label[:19] + "..."
		}

		rec := a.FormatRecurrence()
		if len(rec) > 26 {
			rec = rec[:23] + "..."
		}

		on := "Yes"
		if !a.Enabled {
			on = "No"
		}

		next := "-"
		if a.Enabled {
			if at, ok := recurrence.Next(a, now); ok {
				next = at.Format("Mon 2006-01-02 15:04")
			}
		}

		ctx.Printf("%-44s %-24s %-6s %-28s %-4s %s\n", a.ID, label, a.TimeString(), rec, on, next)
	}

	return nil
}
