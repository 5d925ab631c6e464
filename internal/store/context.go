package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/garderoba/internal/model"
)

// GetSuggestionContext returns the user's stored purpose and location. A user
// who never saved either gets an empty context.
func GetSuggestionContext(ctx context.Context, db *sql.DB, userID int64) (model.SuggestionContext, error) {
	sc := model.SuggestionContext{UserID: userID}
	var purpose, city sql.NullString
	var lat, lon sql.NullFloat64

	err := db.QueryRowContext(ctx,
		`SELECT purpose, latitude, longitude, city FROM suggestion_context WHERE user_id = ?`, userID,
	).Scan(&purpose, &lat, &lon, &city)
	if err == sql.ErrNoRows {
		return sc, nil
	}
	if err != nil {
		return sc, fmt.Errorf("getting suggestion context: %w", err)
	}

	sc.Purpose = purpose.String
	sc.City = city.String
	if lat.Valid && lon.Valid {
		sc.Latitude = &lat.Float64
		sc.Longitude = &lon.Float64
	}
	return sc, nil
}

// SaveContextPurpose remembers the purpose last chosen by the user.
func SaveContextPurpose(ctx context.Context, db *sql.DB, userID int64, purpose string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO suggestion_context (user_id, purpose) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET purpose = excluded.purpose`,
		userID, purpose,
	)
	if err != nil {
		return fmt.Errorf("saving purpose: %w", err)
	}
	return nil
}

// SaveContextLocation remembers the user's coordinates. An empty city keeps
// the previously stored one.
func SaveContextLocation(ctx context.Context, db *sql.DB, userID int64, lat, lon float64, city string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO suggestion_context (user_id, latitude, longitude, city) VALUES (?, ?, ?, NULLIF(?, ''))
		 ON CONFLICT (user_id) DO UPDATE SET
		     latitude = excluded.latitude,
		     longitude = excluded.longitude,
		     city = COALESCE(excluded.city, suggestion_context.city)`,
		userID, lat, lon, city,
	)
	if err != nil {
		return fmt.Errorf("saving location: %w", err)
	}
	return nil
}
