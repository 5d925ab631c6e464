// Package planner assembles a day's outfit suggestions for a user from their
// closet, calendar, stored context and the current weather.
package planner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/outfit"
	"github.com/erazemk/garderoba/internal/store"
	"github.com/erazemk/garderoba/internal/weather"
)

// WeatherSource reports the current weather. *weather.Client implements it.
type WeatherSource interface {
	Current(ctx context.Context, loc weather.Location) weather.Report
}

// Plan is everything the dashboard shows for one request.
type Plan struct {
	Date           string                `json:"date"`
	Purpose        string                `json:"purpose"`
	AutoSelected   bool                  `json:"auto_selected"`
	Schedule       *model.Schedule       `json:"schedule,omitempty"`
	Weather        weather.Report        `json:"weather"`
	Recommendation outfit.Recommendation `json:"recommendation"`
	Suggestions    []outfit.Suggestion   `json:"suggestions"`
}

// Planner is safe for concurrent use.
type Planner struct {
	DB             *sql.DB
	Weather        WeatherSource
	Generator      *outfit.Generator
	Count          int
	DefaultPurpose string
	Now            func() time.Time
}

// Request selects what to plan. Zero values fall back to the configured
// count and the resolved purpose.
type Request struct {
	UserID  int64
	Purpose string
	Count   int
}

// Plan resolves the purpose, fetches the weather and draws suggestions. An
// explicitly chosen purpose is remembered for the user's next visit.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	today := model.Day(now())

	count := req.Count
	if count <= 0 {
		count = p.Count
	}

	schedule, err := store.GetScheduleForDate(ctx, p.DB, req.UserID, today)
	if err != nil {
		return nil, err
	}
	sc, err := store.GetSuggestionContext(ctx, p.DB, req.UserID)
	if err != nil {
		return nil, err
	}

	purpose, auto := model.ResolvePurpose(req.Purpose, schedule, sc, p.DefaultPurpose)
	if req.Purpose != "" && req.Purpose != sc.Purpose {
		if err := store.SaveContextPurpose(ctx, p.DB, req.UserID, req.Purpose); err != nil {
			return nil, err
		}
	}

	report := p.Weather.Current(ctx, weather.Location{
		Latitude:  sc.Latitude,
		Longitude: sc.Longitude,
		City:      sc.City,
	})

	closet, err := store.ListClothing(ctx, p.DB, req.UserID, "")
	if err != nil {
		return nil, err
	}

	suggestions, err := p.Generator.Suggest(closet, purpose, report.Temperature, count)
	if err != nil {
		return nil, fmt.Errorf("suggesting outfits: %w", err)
	}
	if suggestions == nil {
		suggestions = []outfit.Suggestion{}
	}

	return &Plan{
		Date:           today.Format(model.DateLayout),
		Purpose:        purpose,
		AutoSelected:   auto,
		Schedule:       schedule,
		Weather:        report,
		Recommendation: outfit.Classify(report.Temperature),
		Suggestions:    suggestions,
	}, nil
}
