// Package upcoming lists the next occurrence of each enabled alert.
package upcoming

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tradertime/internal/app"
	"github.com/julianstephens/tradertime/internal/delivery"
)

type Item struct {
	Occurrence app.Occurrence
	Now        time.Time
}

func (i Item) Title() string {
	title := i.Occurrence.Alert.DisplayLabel()
	if i.Occurrence.Alert.Fixed {
		title = "◆ " + title
	}
	return title
}

func (i Item) Description() string {
	at := i.Occurrence.At.UTC()
	desc := fmt.Sprintf("%s UTC | in %s", at.Format("Mon 15:04"), until(i.Now, at))
	if i.Occurrence.Path == delivery.PathExactAlarm {
		desc += " | exact"
	}
	return desc
}

func (i Item) FilterValue() string { return i.Occurrence.Alert.Label }

func until(now, at time.Time) string {
	d := at.Sub(now).Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 24 {
		return fmt.Sprintf("%dd%dh", h/24, h%24)
	}
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

type Model struct {
	list list.Model
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Upcoming"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	return Model{list: l}
}

func (m *Model) SetOccurrences(occ []app.Occurrence, now time.Time) {
	items := make([]list.Item, len(occ))
	for i, o := range occ {
		items[i] = Item{Occurrence: o, Now: now}
	}
	m.list.SetItems(items)
}

// Len is the number of listed occurrences.
func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No upcoming alerts."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
