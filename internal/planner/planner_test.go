package planner

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/garderoba/internal/db"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/outfit"
	"github.com/erazemk/garderoba/internal/store"
	"github.com/erazemk/garderoba/internal/weather"
)

var now = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

type fakeWeather struct {
	report weather.Report
	calls  []weather.Location
}

func (f *fakeWeather) Current(_ context.Context, loc weather.Location) weather.Report {
	f.calls = append(f.calls, loc)
	return f.report
}

func warm() weather.Report {
	t := 30.0
	return weather.Report{Temperature: &t, City: "Tokyo", Available: true}
}

func setup(t *testing.T, report weather.Report) (*Planner, *fakeWeather, *sql.DB, int64) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	require.NoError(t, err)

	fw := &fakeWeather{report: report}
	clock := func() time.Time { return now }
	p := &Planner{
		DB:             database,
		Weather:        fw,
		Generator:      outfit.NewGenerator(outfit.WithClock(clock), outfit.WithSource(rand.NewPCG(1, 2))),
		Count:          3,
		DefaultPurpose: model.PurposeUniversity,
		Now:            clock,
	}
	return p, fw, database, user.ID
}

func addCloset(t *testing.T, database *sql.DB, userID int64, purpose string) {
	t.Helper()
	ctx := context.Background()
	for _, k := range []model.Kind{model.KindShortSleeve, model.KindShortSleeve, model.KindShort, model.KindShort} {
		_, err := store.CreateClothing(ctx, database, userID, k, "white", []string{purpose})
		require.NoError(t, err)
	}
}

func TestPlanDefaultPurpose(t *testing.T) {
	p, _, database, userID := setup(t, warm())
	addCloset(t, database, userID, model.PurposeUniversity)

	plan, err := p.Plan(context.Background(), Request{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-10", plan.Date)
	assert.Equal(t, model.PurposeUniversity, plan.Purpose)
	assert.False(t, plan.AutoSelected)
	assert.Len(t, plan.Suggestions, 3)
	require.NotNil(t, plan.Recommendation.Top)
	assert.Equal(t, model.ShortSleeve, *plan.Recommendation.Top)
}

func TestPlanUsesTodaysSchedule(t *testing.T) {
	p, _, database, userID := setup(t, warm())
	addCloset(t, database, userID, model.PurposeDate)
	ctx := context.Background()

	_, err := store.CreateSchedule(ctx, database, userID, now, model.PurposeDate, "dinner")
	require.NoError(t, err)

	plan, err := p.Plan(ctx, Request{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, model.PurposeDate, plan.Purpose)
	assert.True(t, plan.AutoSelected)
	require.NotNil(t, plan.Schedule)
	assert.Equal(t, "dinner", plan.Schedule.Memo)
	assert.NotEmpty(t, plan.Suggestions)
}

func TestPlanExplicitPurposeIsRemembered(t *testing.T) {
	p, _, database, userID := setup(t, warm())
	addCloset(t, database, userID, model.PurposeWork)
	ctx := context.Background()

	plan, err := p.Plan(ctx, Request{UserID: userID, Purpose: model.PurposeWork, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, model.PurposeWork, plan.Purpose)
	assert.Len(t, plan.Suggestions, 1)

	plan, err = p.Plan(ctx, Request{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, model.PurposeWork, plan.Purpose, "stored context beats the default")
}

func TestPlanWithoutWeather(t *testing.T) {
	p, _, database, userID := setup(t, weather.Report{City: "Tokyo", Description: weather.DescriptionNoKey})
	addCloset(t, database, userID, model.PurposeUniversity)

	plan, err := p.Plan(context.Background(), Request{UserID: userID})
	require.NoError(t, err)

	assert.Empty(t, plan.Suggestions)
	assert.NotNil(t, plan.Suggestions)
	assert.Equal(t, outfit.MessageUnavailable, plan.Recommendation.Message)
}

func TestPlanPassesStoredLocation(t *testing.T) {
	p, fw, database, userID := setup(t, warm())
	require.NoError(t, store.SaveContextLocation(context.Background(), database, userID, 43.06, 141.35, "Sapporo"))

	_, err := p.Plan(context.Background(), Request{UserID: userID})
	require.NoError(t, err)

	require.Len(t, fw.calls, 1)
	loc := fw.calls[0]
	require.NotNil(t, loc.Latitude)
	assert.Equal(t, 43.06, *loc.Latitude)
	assert.Equal(t, "Sapporo", loc.City)
}
