package system

import (
	"fmt"

	"github.com/julianstephens/tradertime/internal/autostart"
	"github.com/julianstephens/tradertime/internal/cli"
)

func autostartManager(m *autostart.Manager) (*autostart.Manager, error) {
	if m != nil {
		return m, nil
	}
	m, err := autostart.New("daemon")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare login entry: %w", err)
	}
	return m, nil
}

type AutostartEnableCmd struct {
	manager *autostart.Manager `kong:"-"`
}

func (c *AutostartEnableCmd) Run(ctx *cli.Context) error {
	m, err := autostartManager(c.manager)
	if err != nil {
		return err
	}
	if err := m.Set(true); err != nil {
		return err
	}
	ctx.Printf("✓ Daemon will start at login\n")
	return nil
}

type AutostartDisableCmd struct {
	manager *autostart.Manager `kong:"-"`
}

func (c *AutostartDisableCmd) Run(ctx *cli.Context) error {
	m, err := autostartManager(c.manager)
	if err != nil {
		return err
	}
	if err := m.Set(false); err != nil {
		return err
	}
	ctx.Printf("✓ Daemon removed from login items\n")
	return nil
}

type AutostartStatusCmd struct {
	manager *autostart.Manager `kong:"-"`
}

func (c *AutostartStatusCmd) Run(ctx *cli.Context) error {
	m, err := autostartManager(c.manager)
	if err != nil {
		return err
	}
	if m.Enabled() {
		ctx.Printf("Autostart: enabled\n")
	} else {
		ctx.Printf("Autostart: disabled\n")
	}
	return nil
}
