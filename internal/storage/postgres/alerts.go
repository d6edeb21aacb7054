package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/tradertime/internal/models"
	"github.com/julianstephens/tradertime/internal/storage"
)

const alertColumns = `id, label, hour_utc, minute_utc, recurrence_type, weekdays, anchor_date,
	is_fixed, is_enabled, sound_id, snooze_minutes, duration_sec, created_at`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (models.Alert, error) {
	var a models.Alert
	var recurrenceType, weekdaysJSON string

	err := row.Scan(
		&a.ID, &a.Label, &a.HourUTC, &a.MinuteUTC, &recurrenceType, &weekdaysJSON, &a.Recurrence.Date,
		&a.Fixed, &a.Enabled, &a.SoundID, &a.SnoozeMinutes, &a.DurationSec, &a.CreatedAt,
	)
	if err != nil {
		return models.Alert{}, err
	}

	a.Recurrence.Type = models.RecurrenceType(recurrenceType)
	if a.Recurrence.Weekdays, err = storage.DecodeWeekdays(weekdaysJSON); err != nil {
		return models.Alert{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (s *Store) List(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts
		ORDER BY hour_utc ASC, minute_utc ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

func (s *Store) Get(ctx context.Context, id models.AlertID) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

func (s *Store) Create(ctx context.Context, a models.Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}
	weekdaysJSON, err := storage.EncodeWeekdays(a.Recurrence.Weekdays)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Label, a.HourUTC, a.MinuteUTC, string(a.Recurrence.Type), weekdaysJSON, a.Recurrence.Date,
		a.Fixed, a.Enabled, a.SoundID, a.SnoozeMinutes, a.DurationSec, a.CreatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("%w: %s", storage.ErrExists, a.ID)
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, a models.Alert) error {
	stored, err := s.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := storage.CheckUpdate(stored, a); err != nil {
		return err
	}
	weekdaysJSON, err := storage.EncodeWeekdays(a.Recurrence.Weekdays)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE alerts SET
			label = $1, hour_utc = $2, minute_utc = $3, recurrence_type = $4, weekdays = $5, anchor_date = $6,
			is_enabled = $7, sound_id = $8, snooze_minutes = $9, duration_sec = $10
		WHERE id = $11`,
		a.Label, a.HourUTC, a.MinuteUTC, string(a.Recurrence.Type), weekdaysJSON, a.Recurrence.Date,
		a.Enabled, a.SoundID, a.SnoozeMinutes, a.DurationSec, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return expectOne(result)
}

func (s *Store) Toggle(ctx context.Context, id models.AlertID, enabled bool) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `UPDATE alerts SET is_enabled = $1 WHERE id = $2
		RETURNING `+alertColumns, enabled, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to toggle alert: %w", err)
	}
	return a, nil
}

func (s *Store) Delete(ctx context.Context, id models.AlertID) error {
	if id.IsFixed() {
		return storage.ErrFixedAlert
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return expectOne(result)
}

func (s *Store) RenameAlert(ctx context.Context, from, to models.AlertID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE alerts SET id = $1 WHERE id = $2`, to, from)
	if err != nil {
		return fmt.Errorf("failed to rename alert: %w", err)
	}
	return expectOne(result)
}

func expectOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
