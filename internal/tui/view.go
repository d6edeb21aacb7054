package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tradertime/internal/market"
)

// headerHeight is the number of lines above the upcoming list.
const headerHeight = 10

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.viewHeader()}
	if m.current.Ringing && m.current.Alarm != nil {
		sections = append(sections, m.viewRinging())
	}
	if ev := m.status.LastFixedAlert; ev != nil {
		sections = append(sections, bannerStyle.Render(fmt.Sprintf(
			"%s fired at %s UTC. Session alerts are best-effort while the app is in the background.",
			ev.Label, ev.FiredAt.UTC().Format("15:04"))))
	}
	sections = append(sections, m.upcoming.View())

	if m.err != nil {
		sections = append(sections, errorStyle.Render("Error: "+m.err.Error()))
	} else if m.message != "" {
		sections = append(sections, messageStyle.Render(m.message))
	}
	sections = append(sections, m.help.View(m.keys))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) viewHeader() string {
	if !m.loaded {
		return titleStyle.Render("Trader Time") + " connecting..."
	}

	now := m.status.Now.UTC()
	marketText := m.status.Market
	style := closedStyle
	if marketText == market.StateOpen.String() {
		style = openStyle
	}

	scheduler := "stopped"
	if m.status.Running {
		scheduler = "running"
	}

	return strings.Join([]string{
		titleStyle.Render("Trader Time"),
		clockStyle.Render(now.Format("Mon 2006-01-02 15:04:05")) + " UTC",
		"Market: " + style.Render(marketText),
		"Foreground scheduler: " + scheduler,
	}, "\n")
}

func (m Model) viewRinging() string {
	a := m.current.Alarm
	text := fmt.Sprintf("⏰ %s\n\n[s] stop   [z] snooze", a.Label)
	if a.Snoozed {
		text = fmt.Sprintf("⏰ %s (snoozed)\n\n[s] stop   [z] snooze", a.Label)
	}
	return ringingStyle.Render(text)
}
