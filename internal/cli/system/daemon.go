package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/daemon"
)

type DaemonCmd struct{}

func (c *DaemonCmd) Run(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return daemon.Run(sigCtx, ctx.Config, ctx.Store)
}
