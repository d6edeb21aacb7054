package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/cli/alerts"
	"github.com/julianstephens/tradertime/internal/cli/system"
	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/config"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/errors"
	"github.com/julianstephens/tradertime/internal/logger"
)

var CLI struct {
	config.Config
	Version kong.VersionFlag

	Init   system.InitCmd   `cmd:"" help:"Initialize tradertime storage and seed the session alerts."`
	Daemon system.DaemonCmd `cmd:"" help:"Run the schedulers and the control API." default:"1"`
	Next   system.NextCmd   `cmd:"" help:"Show the next trigger of each enabled alert."`
	Tui    system.TuiCmd    `cmd:"" help:"Open the live dashboard of a running daemon."`
	Alert  struct {
		Add    alerts.AlertAddCmd    `cmd:"" help:"Add a custom alert."`
		List   alerts.AlertListCmd   `cmd:"" help:"List all alerts."`
		Edit   alerts.AlertEditCmd   `cmd:"" help:"Edit an alert."`
		Toggle alerts.AlertToggleCmd `cmd:"" help:"Enable or disable an alert."`
		Delete alerts.AlertDeleteCmd `cmd:"" help:"Delete a custom alert."`
		Export alerts.AlertExportCmd `cmd:"" help:"Export enabled alerts as an iCalendar file."`
	} `cmd:"" help:"Manage alerts."`
	Backup struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Snapshot the SQLite database." default:"1"`
		List    system.BackupListCmd    `cmd:"" help:"List database snapshots."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
	} `cmd:"" help:"Manage SQLite database backups."`
	Permission system.PermissionCmd `cmd:"" help:"Check the exact-alarm permission of the running daemon."`
	Autostart  struct {
		Enable  system.AutostartEnableCmd  `cmd:"" help:"Start the daemon at login."`
		Disable system.AutostartDisableCmd `cmd:"" help:"Stop starting the daemon at login."`
		Status  system.AutostartStatusCmd  `cmd:"" help:"Show whether the daemon starts at login." default:"1"`
	} `cmd:"" help:"Manage launch at login."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show a stored secret with its password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check OS keyring availability." default:"1"`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
}

// storeless commands never touch the database.
var storeless = []string{"keyring", "autostart", "permission", "tui"}

func needsStore(command string) bool {
	for _, prefix := range storeless {
		if strings.HasPrefix(command, prefix) {
			return false
		}
	}
	return true
}

func main() {
	vars := config.Vars()
	vars["version"] = constants.Version

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Forex market-session alarms"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars(vars),
	)

	cfg := &CLI.Config
	if dir, err := cfg.Dir(); err == nil {
		if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: dir}); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
		}
	}

	appCtx := &cli.Context{
		Config: cfg,
		Clock:  clock.Real{},
		Out:    os.Stdout,
	}

	command := ctx.Command()
	if needsStore(command) {
		store, err := cli.OpenStore(cfg)
		if err != nil {
			errors.Fatal(err)
		}
		appCtx.Store = store

		// init opens the database itself.
		if !strings.HasPrefix(command, "init") {
			if err := store.Load(); err != nil {
				errors.Fatal(err)
			}
		}
		if !strings.HasPrefix(command, "daemon") {
			defer store.Close()
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		errors.Fatal(err)
	}
}
