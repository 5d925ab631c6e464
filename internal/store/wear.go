package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrWrongCategory is returned when a wear record names a bottom as the top
// or vice versa.
var ErrWrongCategory = errors.New("item has the wrong category")

// RecordWear marks a top and bottom as worn on the given day and logs the
// outfit, in a single transaction.
func RecordWear(ctx context.Context, db *sql.DB, userID int64, topID, bottomID string, on time.Time) (*model.WearEvent, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, want := range []struct {
		id       string
		category model.Category
	}{{topID, model.CategoryTop}, {bottomID, model.CategoryBottom}} {
		var category model.Category
		err := tx.QueryRowContext(ctx,
			`SELECT category FROM clothing WHERE id = ? AND user_id = ?`, want.id, userID,
		).Scan(&category)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("clothing %s: %w", want.id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("checking clothing %s: %w", want.id, err)
		}
		if category != want.category {
			return nil, fmt.Errorf("clothing %s is a %s: %w", want.id, category, ErrWrongCategory)
		}
	}

	day := formatDate(on)
	_, err = tx.ExecContext(ctx,
		`UPDATE clothing SET last_worn_on = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND id IN (?, ?)`,
		day, userID, topID, bottomID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking worn: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO wear_events (user_id, top_id, bottom_id, worn_on) VALUES (?, ?, ?, ?)`,
		userID, topID, bottomID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("recording wear: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting wear event id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing wear: %w", err)
	}

	return GetWearEvent(ctx, db, userID, id)
}

// GetWearEvent returns one wear event.
func GetWearEvent(ctx context.Context, db *sql.DB, userID, id int64) (*model.WearEvent, error) {
	e, err := scanWearEvent(db.QueryRowContext(ctx,
		`SELECT id, user_id, top_id, bottom_id, worn_on, created_at
		 FROM wear_events WHERE id = ? AND user_id = ?`, id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting wear event: %w", err)
	}
	return e, nil
}

// ListWearHistory returns wear events newest first. A non-empty clothingID
// limits the list to outfits that included that item; limit <= 0 means no limit.
func ListWearHistory(ctx context.Context, db *sql.DB, userID int64, clothingID string, limit int) ([]model.WearEvent, error) {
	query := `SELECT id, user_id, top_id, bottom_id, worn_on, created_at
		 FROM wear_events WHERE user_id = ?`
	args := []any{userID}

	if clothingID != "" {
		query += ` AND (top_id = ? OR bottom_id = ?)`
		args = append(args, clothingID, clothingID)
	}
	query += ` ORDER BY worn_on DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing wear history: %w", err)
	}
	defer rows.Close()

	var events []model.WearEvent
	for rows.Next() {
		e, err := scanWearEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wear event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ResetWorn clears an item's last-worn date so it is eligible again.
func ResetWorn(ctx context.Context, db *sql.DB, userID int64, id string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE clothing SET last_worn_on = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("resetting worn: %w", err)
	}
	return requireAffected(result, "resetting worn")
}

// ResetAllWorn clears every last-worn date in a user's closet and returns
// how many items were affected.
func ResetAllWorn(ctx context.Context, db *sql.DB, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE clothing SET last_worn_on = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND last_worn_on IS NOT NULL`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("resetting all worn: %w", err)
	}
	return result.RowsAffected()
}

func scanWearEvent(row rowScanner) (*model.WearEvent, error) {
	e := &model.WearEvent{}
	var wornOn string
	if err := row.Scan(&e.ID, &e.UserID, &e.TopID, &e.BottomID, &wornOn, &e.CreatedAt); err != nil {
		return nil, err
	}
	d, err := model.ParseDate(wornOn)
	if err != nil {
		return nil, err
	}
	e.WornOn = d
	return e, nil
}
