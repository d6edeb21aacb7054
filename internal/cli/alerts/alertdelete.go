package alerts

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/models"
)

// Confirmer asks the user a yes/no question.
type Confirmer func(title string) (bool, error)

func huhConfirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

type AlertDeleteCmd struct {
	ID  string `arg:"" help:"Alert ID to delete (user:KEY)."`
	Yes bool   `short:"y" help:"Skip the confirmation prompt."`

	confirm Confirmer `kong:"-"`
}

func (c *AlertDeleteCmd) Run(ctx *cli.Context) error {
	id, err := models.ParseAlertID(c.ID)
	if err != nil {
		return err
	}
	if id.IsFixed() {
		return fmt.Errorf("built-in session alerts cannot be deleted; disable it with 'alert toggle %s --off'", id)
	}

	bg := context.Background()
	a, err := ctx.Store.Get(bg, id)
	if err != nil {
		return fmt.Errorf("alert not found: %w", err)
	}

	if !c.Yes {
		confirm := c.confirm
		if confirm == nil {
			confirm = huhConfirm
		}
		ok, err := confirm(fmt.Sprintf("Delete %q at %s UTC?", a.DisplayLabel(), a.TimeString()))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Printf("Cancelled.\n")
			return nil
		}
	}

	if err := ctx.Store.Delete(bg, id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	ctx.Printf("✓ Alert deleted: %s at %s UTC\n", a.DisplayLabel(), a.TimeString())
	ctx.NotifyDaemon()
	return nil
}
