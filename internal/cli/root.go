package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/tradertime/internal/api"
	"github.com/julianstephens/tradertime/internal/clock"
	"github.com/julianstephens/tradertime/internal/config"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/storage"
	"github.com/julianstephens/tradertime/internal/storage/postgres"
	"github.com/julianstephens/tradertime/internal/storage/sqlite"
)

type Context struct {
	Config *config.Config
	Store  storage.Provider
	Clock  clock.Clock
	Out    io.Writer
}

func (c *Context) Now() time.Time {
	return clock.Or(c.Clock).Now()
}

func (c *Context) Printf(format string, args ...any) {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, format, args...)
}

// NotifyDaemon asks a running daemon to resync after the store changed.
// Nothing happens when no daemon is listening.
func (c *Context) NotifyDaemon() {
	if c.Config == nil || c.Config.APIAddr == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := api.NewClient(c.Config.APIAddr).Resume(ctx); err != nil {
		logger.Debug("Daemon not notified", "error", err)
		return
	}
	logger.Debug("Daemon resynced")
}

// OpenStore selects the storage backend named by cfg. PostgreSQL URLs given
// on the command line must not carry a password; the keyring entry may.
func OpenStore(cfg *config.Config) (storage.Provider, error) {
	if !cfg.IsPostgres() {
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(path), nil
	}

	connStr, err := cfg.ConnectionString()
	if err != nil {
		return nil, err
	}
	if cfg.Store != config.KeyringStore {
		if _, err := postgres.ValidateConnString(connStr); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w; store it with 'tradertime keyring set database' and pass --config keyring", err)
			}
			return nil, err
		}
	}
	return postgres.New(connStr), nil
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	seen := make(map[time.Weekday]bool)
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		wd, ok := dayMap[part]
		if !ok {
			// Try parsing as number (0=Sunday, 6=Saturday)
			num, err := strconv.Atoi(part)
			if err != nil || num < 0 || num > 6 {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
			wd = time.Weekday(num)
		}
		if !seen[wd] {
			seen[wd] = true
			weekdays = append(weekdays, wd)
		}
	}

	return weekdays, nil
}

// ParseClock parses an HH:MM UTC time of day.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format (expected HH:MM): %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
