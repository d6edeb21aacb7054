package system

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tradertime/internal/api"
	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if ctx.Config.APIAddr == "" {
		return errors.New("the dashboard needs the daemon control API; set --api-addr")
	}
	p := tea.NewProgram(tui.NewModel(api.NewClient(ctx.Config.APIAddr)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard exited: %w", err)
	}
	return nil
}
