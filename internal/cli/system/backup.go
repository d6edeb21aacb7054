package system

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/tradertime/internal/backup"
	"github.com/julianstephens/tradertime/internal/cli"
)

var errBackupPostgres = errors.New("backups are only supported for SQLite databases")

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if ctx.Config != nil && ctx.Config.IsPostgres() {
		return nil, errBackupPostgres
	}
	return backup.NewManager(ctx.Store.GetConfigPath(), backup.WithClock(ctx.Clock)), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return err
	}
	ctx.Printf("✓ Backup created: %s\n", path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	snaps, err := mgr.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		ctx.Printf("No backups in %s\n", mgr.Dir())
		return nil
	}
	for _, s := range snaps {
		ctx.Printf("%-40s %s  %s\n", filepath.Base(s.Path), s.Taken.Format("2006-01-02 15:04:05"), humanize.Bytes(uint64(s.Size)))
	}
	return nil
}

type BackupRestoreCmd struct {
	Path string `arg:"" help:"Backup file to restore, or its file name in the backups directory."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path := c.Path
	if filepath.Base(path) == path {
		path = filepath.Join(mgr.Dir(), path)
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	previous, err := mgr.Restore(path)
	if err != nil {
		return err
	}
	if previous != "" {
		ctx.Printf("Saved current database as %s\n", filepath.Base(previous))
	}
	ctx.Printf("✓ Restored %s\n", filepath.Base(path))
	ctx.NotifyDaemon()
	return nil
}
