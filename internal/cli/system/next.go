package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/tradertime/internal/app"
	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/market"
)

type NextCmd struct {
	Limit int `help:"Maximum number of triggers to list. Zero lists all." default:"10"`
}

func (c *NextCmd) Run(ctx *cli.Context) error {
	alerts, err := ctx.Store.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}

	platform := delivery.PlatformStandard
	if ctx.Config != nil {
		platform = ctx.Config.DeliveryPlatform()
	}

	now := ctx.Now()
	ctx.Printf("Now: %s UTC (market %s)\n", now.Format("Mon 2006-01-02 15:04"), market.StateAt(now))

	upcoming := app.Upcoming(alerts, platform, now, c.Limit)
	if len(upcoming) == 0 {
		ctx.Printf("No upcoming triggers.\n")
		return nil
	}

	for _, o := range upcoming {
		ctx.Printf("%-22s %-12s %s\n", o.At.Format("Mon 2006-01-02 15:04"), o.Path, o.Alert.DisplayLabel())
	}
	return nil
}
