// Package autostart registers the daemon to start with the user session.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/logger"
)

// Entry is the subset of autostart.App the manager drives.
type Entry interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// Manager toggles the login entry for the daemon.
type Manager struct {
	entry Entry
}

// Command returns the argv the session should run at login.
func Command(args ...string) ([]string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable: %w", err)
	}
	return append([]string{execPath}, args...), nil
}

// New returns a manager for the daemon's login entry. args are appended to
// the executable path, normally "daemon".
func New(args ...string) (*Manager, error) {
	exec, err := Command(args...)
	if err != nil {
		return nil, err
	}
	return NewWithEntry(&autostart.App{
		Name:        constants.AppName,
		DisplayName: "Trader Time",
		Exec:        exec,
	}), nil
}

// NewWithEntry wraps an existing entry.
func NewWithEntry(entry Entry) *Manager {
	return &Manager{entry: entry}
}

// Enabled reports whether the entry is installed.
func (m *Manager) Enabled() bool {
	return m.entry.IsEnabled()
}

// Set installs or removes the entry. It is a no-op when already in the
// requested state.
func (m *Manager) Set(enable bool) error {
	if m.entry.IsEnabled() == enable {
		return nil
	}
	if enable {
		if err := m.entry.Enable(); err != nil {
			logger.Error("Failed to enable autostart", "error", err)
			return fmt.Errorf("failed to enable autostart: %w", err)
		}
		logger.Info("Autostart enabled")
		return nil
	}
	if err := m.entry.Disable(); err != nil {
		logger.Error("Failed to disable autostart", "error", err)
		return fmt.Errorf("failed to disable autostart: %w", err)
	}
	logger.Info("Autostart disabled")
	return nil
}
