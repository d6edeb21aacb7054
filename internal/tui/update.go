package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tradertime/internal/api"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.upcoming.SetSize(msg.Width-4, msg.Height-headerHeight)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case refreshMsg:
		m.err = msg.err
		if msg.err == nil {
			m.loaded = true
			m.status = msg.status
			m.current = msg.current
			m.upcoming.SetOccurrences(msg.next, msg.status.Now)
		}
		return m, nil

	case actionMsg:
		m.message = msg.message
		m.err = msg.err
		return m, m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Stop):
			return m, m.stopAlarm()
		case key.Matches(msg, m.keys.Snooze):
			return m, m.snooze()
		case key.Matches(msg, m.keys.Resync):
			return m, m.resync()
		case key.Matches(msg, m.keys.Scheduler):
			return m, m.toggleScheduler(!m.status.Running)
		}
	}

	var cmd tea.Cmd
	m.upcoming, cmd = m.upcoming.Update(msg)
	return m, cmd
}

func (m Model) action(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		text, err := fn(ctx)
		return actionMsg{message: text, err: err}
	}
}

func (m Model) stopAlarm() tea.Cmd {
	b := m.backend
	return m.action(func(ctx context.Context) (string, error) {
		stopped, err := b.StopAlarm(ctx)
		if err != nil {
			return "", err
		}
		if !stopped {
			return "Nothing is ringing.", nil
		}
		return "Alarm stopped.", nil
	})
}

func (m Model) snooze() tea.Cmd {
	b := m.backend
	return m.action(func(ctx context.Context) (string, error) {
		a, err := b.Snooze(ctx)
		if errors.Is(err, api.ErrNotRinging) {
			return "Nothing is ringing.", nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Snoozed until %s UTC.", a.At.UTC().Format("15:04")), nil
	})
}

func (m Model) resync() tea.Cmd {
	b := m.backend
	return m.action(func(ctx context.Context) (string, error) {
		sum, err := b.Resume(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Resynced: %d notifications, %d alarms armed.",
			sum.Notifications.Armed, sum.Alarms.Armed), nil
	})
}

func (m Model) toggleScheduler(run bool) tea.Cmd {
	b := m.backend
	return m.action(func(ctx context.Context) (string, error) {
		resp, err := b.SetRunning(ctx, run)
		if err != nil {
			return "", err
		}
		if resp.Running {
			return "Foreground scheduler running.", nil
		}
		return "Foreground scheduler stopped.", nil
	})
}
