package alerts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/tradertime/internal/calendar"
	"github.com/julianstephens/tradertime/internal/cli"
)

type AlertExportCmd struct {
	Output string `short:"o" help:"Write the calendar to this file instead of stdout." type:"path"`
}

func (c *AlertExportCmd) Run(ctx *cli.Context) error {
	alerts, err := ctx.Store.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}

	var w io.Writer = ctx.Out
	if w == nil {
		w = os.Stdout
	}
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	if err := calendar.Export(w, alerts, ctx.Now()); err != nil {
		return err
	}
	if c.Output != "" {
		ctx.Printf("✓ Calendar written to %s\n", c.Output)
	}
	return nil
}
