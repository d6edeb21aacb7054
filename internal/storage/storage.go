// Package storage defines the alert store boundary and the behaviour shared by
// its SQL backends.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/models"
)

var (
	ErrNotFound   = errors.New("alert not found")
	ErrExists     = errors.New("alert already exists")
	ErrFixedAlert = errors.New("built-in alerts can only be toggled or have their sound changed")
)

// AlertStore is the persisted alert set.
type AlertStore interface {
	List(ctx context.Context) ([]models.Alert, error)
	Get(ctx context.Context, id models.AlertID) (models.Alert, error)
	Create(ctx context.Context, a models.Alert) error
	Update(ctx context.Context, a models.Alert) error
	Toggle(ctx context.Context, id models.AlertID, enabled bool) (models.Alert, error)
	Delete(ctx context.Context, id models.AlertID) error
}

// Provider is an AlertStore with a lifecycle.
type Provider interface {
	AlertStore

	// Init creates the schema, seeds the built-in alerts and reconciles their ids.
	Init() error
	// Load opens an initialised store and validates its schema version.
	Load() error
	Close() error

	// RenameAlert moves a stored alert to a new id.
	RenameAlert(ctx context.Context, from, to models.AlertID) error

	GetConfigPath() string
}

// CheckUpdate validates next as a replacement for stored.
func CheckUpdate(stored, next models.Alert) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if stored.Fixed != next.Fixed {
		return ErrFixedAlert
	}
	if !stored.Fixed {
		return nil
	}
	if stored.Label != next.Label ||
		stored.HourUTC != next.HourUTC ||
		stored.MinuteUTC != next.MinuteUTC ||
		!sameRecurrence(stored.Recurrence, next.Recurrence) {
		return ErrFixedAlert
	}
	return nil
}

func sameRecurrence(a, b models.Recurrence) bool {
	if a.Type != b.Type || a.Date != b.Date || len(a.Weekdays) != len(b.Weekdays) {
		return false
	}
	for _, wd := range a.Weekdays {
		if !b.HasWeekday(wd) {
			return false
		}
	}
	return true
}

// EncodeWeekdays stores a weekday set as a sorted JSON array.
func EncodeWeekdays(days []time.Weekday) (string, error) {
	sorted := make([]int, 0, len(days))
	for _, d := range days {
		sorted = append(sorted, int(d))
	}
	sort.Ints(sorted)
	b, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("failed to marshal weekdays: %w", err)
	}
	return string(b), nil
}

func DecodeWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	var raw []int
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weekdays: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	days := make([]time.Weekday, len(raw))
	for i, d := range raw {
		days[i] = time.Weekday(d)
	}
	return days, nil
}

// SeedFixedAlerts reconciles the stored built-in alerts with the catalogue.
// Stored ids are first moved to catalogue order by label, through temporary
// ids so that swaps cannot collide, then missing entries are inserted.
func SeedFixedAlerts(ctx context.Context, p Provider) error {
	stored, err := p.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	changes := models.PlanFixedIDMigration(stored)
	if len(changes) > 0 {
		if err := applyIDChanges(ctx, p, changes); err != nil {
			return err
		}
		logger.Info("Migrated built-in alert ids", "count", len(changes))
	}

	missing := models.MissingFixedAlerts(stored)
	for _, a := range missing {
		a.CreatedAt = time.Now().UTC()
		if err := p.Create(ctx, a); err != nil {
			return fmt.Errorf("failed to seed built-in alert %q: %w", a.Label, err)
		}
	}
	if len(missing) > 0 {
		logger.Info("Seeded built-in alerts", "count", len(missing))
	}
	return nil
}

func applyIDChanges(ctx context.Context, p Provider, changes []models.IDChange) error {
	temp := make([]models.AlertID, len(changes))
	for i, c := range changes {
		temp[i] = models.UserID(fmt.Sprintf("migrating-fixed-%d", i))
		if err := p.RenameAlert(ctx, c.From, temp[i]); err != nil {
			return fmt.Errorf("failed to move %s aside: %w", c.From, err)
		}
	}
	for i, c := range changes {
		if err := p.RenameAlert(ctx, temp[i], c.To); err != nil {
			return fmt.Errorf("failed to rename %s to %s: %w", c.From, c.To, err)
		}
	}
	return nil
}
