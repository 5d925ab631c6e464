package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrNoPurposes is returned when an item would be stored without any purpose.
var ErrNoPurposes = errors.New("at least one purpose is required")

const clothingColumns = `id, user_id, category, subcategory, color, purposes, last_worn_on, photo_mime,
	detected_category, detected_subcategory, detected_colors, detection_confidence, shape_analysis,
	created_at, updated_at`

// CreateClothing adds an item to a user's closet.
func CreateClothing(ctx context.Context, db *sql.DB, userID int64, kind model.Kind, color string, purposes []string) (*model.Clothing, error) {
	if kind.IsZero() {
		return nil, fmt.Errorf("creating clothing: kind required")
	}
	purposes = model.NormalizePurposes(purposes)
	if len(purposes) == 0 {
		return nil, ErrNoPurposes
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO clothing (id, user_id, category, subcategory, color, purposes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, kind.Category(), kind.Subcategory(), color, strings.Join(purposes, ","),
	)
	if err != nil {
		return nil, fmt.Errorf("creating clothing: %w", err)
	}

	return GetClothing(ctx, db, userID, id)
}

// GetClothing returns one of the user's items by ID.
func GetClothing(ctx context.Context, db *sql.DB, userID int64, id string) (*model.Clothing, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+clothingColumns+` FROM clothing WHERE id = ? AND user_id = ?`, id, userID,
	)
	c, err := scanClothing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting clothing: %w", err)
	}
	return c, nil
}

// ListClothing returns a user's closet, newest first, optionally filtered by category.
func ListClothing(ctx context.Context, db *sql.DB, userID int64, category model.Category) ([]model.Clothing, error) {
	var rows *sql.Rows
	var err error

	if category != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+clothingColumns+` FROM clothing
			 WHERE user_id = ? AND category = ? ORDER BY created_at DESC, id`, userID, category,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+clothingColumns+` FROM clothing
			 WHERE user_id = ? ORDER BY created_at DESC, id`, userID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing clothing: %w", err)
	}
	defer rows.Close()

	var closet []model.Clothing
	for rows.Next() {
		c, err := scanClothing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning clothing: %w", err)
		}
		closet = append(closet, *c)
	}
	return closet, rows.Err()
}

// UpdateClothing replaces an item's kind, color and purposes.
func UpdateClothing(ctx context.Context, db *sql.DB, userID int64, id string, kind model.Kind, color string, purposes []string) error {
	if kind.IsZero() {
		return fmt.Errorf("updating clothing: kind required")
	}
	purposes = model.NormalizePurposes(purposes)
	if len(purposes) == 0 {
		return ErrNoPurposes
	}

	result, err := db.ExecContext(ctx,
		`UPDATE clothing SET category = ?, subcategory = ?, color = ?, purposes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		kind.Category(), kind.Subcategory(), color, strings.Join(purposes, ","), id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating clothing: %w", err)
	}
	return requireAffected(result, "updating clothing")
}

// DeleteClothing removes an item together with its photo and wear events.
func DeleteClothing(ctx context.Context, db *sql.DB, userID int64, id string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM clothing WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting clothing: %w", err)
	}
	return requireAffected(result, "deleting clothing")
}

// SetClothingPhoto stores an item's photo.
func SetClothingPhoto(ctx context.Context, db *sql.DB, userID int64, id string, photo []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE clothing SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		photo, mime, id, userID,
	)
	if err != nil {
		return fmt.Errorf("setting clothing photo: %w", err)
	}
	return requireAffected(result, "setting clothing photo")
}

// GetClothingPhoto returns an item's photo and MIME type. The data is nil if
// the item has no photo or does not exist.
func GetClothingPhoto(ctx context.Context, db *sql.DB, userID int64, id string) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM clothing WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting clothing photo: %w", err)
	}
	return photo, mime.String, nil
}

// SetClothingDetection stores image analysis results for an item.
func SetClothingDetection(ctx context.Context, db *sql.DB, userID int64, id string, det *model.Detection) error {
	var category, subcategory sql.NullString
	if det.Kind != nil {
		category = sql.NullString{String: string(det.Kind.Category()), Valid: true}
		subcategory = sql.NullString{String: string(det.Kind.Subcategory()), Valid: true}
	}

	colors, err := json.Marshal(det.Colors)
	if err != nil {
		return fmt.Errorf("encoding detected colors: %w", err)
	}
	var shape []byte
	if det.Shape != nil {
		if shape, err = json.Marshal(det.Shape); err != nil {
			return fmt.Errorf("encoding shape analysis: %w", err)
		}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE clothing SET detected_category = ?, detected_subcategory = ?, detected_colors = ?,
		        detection_confidence = ?, shape_analysis = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		category, subcategory, string(colors), det.Confidence, nullableJSON(shape), id, userID,
	)
	if err != nil {
		return fmt.Errorf("setting clothing detection: %w", err)
	}
	return requireAffected(result, "setting clothing detection")
}

func scanClothing(row rowScanner) (*model.Clothing, error) {
	var c model.Clothing
	var category, subcategory, purposes string
	var lastWorn, photoMime, detCategory, detSubcategory, detColors, shape sql.NullString
	var confidence sql.NullFloat64

	err := row.Scan(&c.ID, &c.UserID, &category, &subcategory, &c.Color, &purposes, &lastWorn, &photoMime,
		&detCategory, &detSubcategory, &detColors, &confidence, &shape,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Kind, err = model.ParseKind(category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("clothing %s: %w", c.ID, err)
	}
	c.Purposes = strings.Split(purposes, ",")
	c.PhotoMime = photoMime.String

	if lastWorn.Valid {
		d, err := model.ParseDate(lastWorn.String)
		if err != nil {
			return nil, fmt.Errorf("clothing %s: %w", c.ID, err)
		}
		c.LastWornOn = &d
	}

	if confidence.Valid {
		c.Detection = &model.Detection{Confidence: confidence.Float64}
		if detCategory.Valid {
			if k, err := model.ParseKind(detCategory.String, detSubcategory.String); err == nil {
				c.Detection.Kind = &k
			}
		}
		if detColors.Valid {
			if err := json.Unmarshal([]byte(detColors.String), &c.Detection.Colors); err != nil {
				return nil, fmt.Errorf("clothing %s: decoding detected colors: %w", c.ID, err)
			}
		}
		if shape.Valid {
			c.Detection.Shape = &model.ShapeMetrics{}
			if err := json.Unmarshal([]byte(shape.String), c.Detection.Shape); err != nil {
				return nil, fmt.Errorf("clothing %s: decoding shape analysis: %w", c.ID, err)
			}
		}
	}

	return &c, nil
}

func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func nullableJSON(data []byte) sql.NullString {
	if data == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func formatDate(t time.Time) string {
	return model.Day(t).Format(model.DateLayout)
}
