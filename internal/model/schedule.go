package model

import (
	"encoding/json"
	"time"
)

// Schedule is a planned occasion on a given day. At most one per user and date.
type Schedule struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      time.Time `json:"-"`
	Purpose   string    `json:"purpose"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DateString returns the schedule date as YYYY-MM-DD.
func (s *Schedule) DateString() string {
	return s.Date.Format(DateLayout)
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (s Schedule) MarshalJSON() ([]byte, error) {
	type alias Schedule
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias(s), s.DateString()})
}

// WearEvent records one outfit being worn.
type WearEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TopID     string    `json:"top_id"`
	BottomID  string    `json:"bottom_id"`
	WornOn    time.Time `json:"worn_on"`
	CreatedAt time.Time `json:"created_at"`
}

// SuggestionContext is the per-user state that shapes a suggestion request:
// the last chosen purpose and the last known location.
type SuggestionContext struct {
	UserID    int64    `json:"-"`
	Purpose   string   `json:"purpose,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (c SuggestionContext) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// ResolvePurpose picks the purpose for a suggestion request. An explicit
// choice wins, then today's schedule (auto is true), then the stored context,
// then fallback.
func ResolvePurpose(explicit string, today *Schedule, ctx SuggestionContext, fallback string) (purpose string, auto bool) {
	switch {
	case explicit != "":
		return explicit, false
	case today != nil && today.Purpose != "":
		return today.Purpose, true
	case ctx.Purpose != "":
		return ctx.Purpose, false
	default:
		return fallback, false
	}
}
