package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/tradertime/internal/api"
	"github.com/julianstephens/tradertime/internal/cli"
)

// PermissionCmd asks the running daemon whether exact alarms may be scheduled.
type PermissionCmd struct {
	client permissionClient `kong:"-"`
}

type permissionClient interface {
	Permission(ctx context.Context) (api.PermissionResponse, error)
}

func (c *PermissionCmd) Run(ctx *cli.Context) error {
	client := c.client
	if client == nil {
		client = api.NewClient(ctx.Config.APIAddr)
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	perm, err := client.Permission(reqCtx)
	if err != nil {
		return fmt.Errorf("failed to query daemon (is `tradertime daemon` running?): %w", err)
	}

	switch {
	case !perm.Available:
		ctx.Printf("Exact alarms are not used on this platform; alerts are delivered as notifications.\n")
	case perm.Granted:
		ctx.Printf("✓ Exact alarms are permitted\n")
	case perm.NeedsUserAction:
		ctx.Printf("❌ Exact alarms are not permitted. Grant the permission in system settings, then run `tradertime alert list`.\n")
	default:
		ctx.Printf("❌ Exact alarms are not permitted\n")
	}
	return nil
}
