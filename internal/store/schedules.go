package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrScheduleConflict is returned when a user already has a schedule on the date.
var ErrScheduleConflict = errors.New("a schedule already exists for this date")

const scheduleColumns = `id, user_id, date, purpose, memo, created_at`

// CreateSchedule plans an occasion on a date.
func CreateSchedule(ctx context.Context, db *sql.DB, userID int64, date time.Time, purpose, memo string) (*model.Schedule, error) {
	if purpose == "" {
		return nil, fmt.Errorf("creating schedule: purpose required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	day := formatDate(date)
	if err := checkScheduleFree(ctx, tx, userID, day, ""); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedules (id, user_id, date, purpose, memo) VALUES (?, ?, ?, ?, ?)`,
		id, userID, day, purpose, memo,
	)
	if err != nil {
		return nil, fmt.Errorf("creating schedule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing schedule: %w", err)
	}

	return GetSchedule(ctx, db, userID, id)
}

// UpdateSchedule moves or edits a schedule. Moving onto a date that is
// already taken returns ErrScheduleConflict.
func UpdateSchedule(ctx context.Context, db *sql.DB, userID int64, id string, date time.Time, purpose, memo string) error {
	if purpose == "" {
		return fmt.Errorf("updating schedule: purpose required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	day := formatDate(date)
	if err := checkScheduleFree(ctx, tx, userID, day, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE schedules SET date = ?, purpose = ?, memo = ? WHERE id = ? AND user_id = ?`,
		day, purpose, memo, id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}
	if err := requireAffected(result, "updating schedule"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schedule: %w", err)
	}
	return nil
}

// GetSchedule returns a schedule by ID.
func GetSchedule(ctx context.Context, db *sql.DB, userID int64, id string) (*model.Schedule, error) {
	s, err := scanSchedule(db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ? AND user_id = ?`, id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	return s, nil
}

// GetScheduleForDate returns the user's schedule on a day, if any.
func GetScheduleForDate(ctx context.Context, db *sql.DB, userID int64, date time.Time) (*model.Schedule, error) {
	s, err := scanSchedule(db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = ? AND date = ?`, userID, formatDate(date),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule for date: %w", err)
	}
	return s, nil
}

// DeleteSchedule removes a schedule.
func DeleteSchedule(ctx context.Context, db *sql.DB, userID int64, id string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM schedules WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	return requireAffected(result, "deleting schedule")
}

// ListUpcomingSchedules returns schedules from today onwards, soonest first.
func ListUpcomingSchedules(ctx context.Context, db *sql.DB, userID int64, today time.Time) ([]model.Schedule, error) {
	return listSchedules(ctx, db,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE user_id = ? AND date >= ? ORDER BY date`,
		userID, formatDate(today),
	)
}

// ListPastSchedules returns up to limit schedules before today, most recent first.
func ListPastSchedules(ctx context.Context, db *sql.DB, userID int64, today time.Time, limit int) ([]model.Schedule, error) {
	return listSchedules(ctx, db,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE user_id = ? AND date < ? ORDER BY date DESC LIMIT ?`,
		userID, formatDate(today), limit,
	)
}

func listSchedules(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Schedule, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func checkScheduleFree(ctx context.Context, tx *sql.Tx, userID int64, day, exceptID string) error {
	var taken bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE user_id = ? AND date = ? AND id <> ?)`,
		userID, day, exceptID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("checking schedule date: %w", err)
	}
	if taken {
		return ErrScheduleConflict
	}
	return nil
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	s := &model.Schedule{}
	var date string
	var memo sql.NullString
	if err := row.Scan(&s.ID, &s.UserID, &date, &s.Purpose, &memo, &s.CreatedAt); err != nil {
		return nil, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	s.Date = d
	s.Memo = memo.String
	return s, nil
}
