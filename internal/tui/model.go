// Package tui is a terminal status view over a running daemon: UTC clock,
// market state, upcoming occurrences, and the ringing alarm with stop and
// snooze keys.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/api"
	"github.com/julianstephens/tradertime/internal/app"
	"github.com/julianstephens/tradertime/internal/tui/components/upcoming"
)

const (
	refreshInterval = time.Second
	requestTimeout  = 3 * time.Second
	upcomingLimit   = 20
)

// Backend is the daemon surface the view drives. *api.Client satisfies it.
type Backend interface {
	Status(ctx context.Context) (api.Status, error)
	SetRunning(ctx context.Context, run bool) (api.LifecycleResponse, error)
	Current(ctx context.Context) (api.CurrentResponse, error)
	StopAlarm(ctx context.Context) (bool, error)
	Snooze(ctx context.Context) (alarm.Alarm, error)
	Resume(ctx context.Context) (app.ResumeSummary, error)
	Next(ctx context.Context, limit int) ([]app.Occurrence, error)
}

type Model struct {
	backend  Backend
	keys     KeyMap
	help     help.Model
	upcoming upcoming.Model

	status   api.Status
	current  api.CurrentResponse
	err      error
	message  string
	loaded   bool
	quitting bool
	width    int
	height   int
}

func NewModel(backend Backend) Model {
	return Model{
		backend:  backend,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		upcoming: upcoming.New(0, 0),
	}
}

type tickMsg time.Time

// refreshMsg carries one poll of the daemon.
type refreshMsg struct {
	status  api.Status
	current api.CurrentResponse
	next    []app.Occurrence
	err     error
}

// actionMsg reports the outcome of a key action.
type actionMsg struct {
	message string
	err     error
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		st, err := b.Status(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		cur, err := b.Current(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		next, err := b.Next(ctx, upcomingLimit)
		if err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{status: st, current: cur, next: next}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}
