package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/garderoba/internal/db"
	"github.com/erazemk/garderoba/internal/model"
)

func newTestUser(t *testing.T, database *sql.DB, name string) *model.User {
	t.Helper()
	user, err := CreateUser(context.Background(), database, name, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestCreateAndGetClothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	c, err := CreateClothing(ctx, database, user.ID, model.KindLongSleeveLight, "navy", []string{"work", " date", "work"})
	if err != nil {
		t.Fatalf("CreateClothing: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated id")
	}
	if c.Kind != model.KindLongSleeveLight {
		t.Errorf("expected kind %v, got %v", model.KindLongSleeveLight, c.Kind)
	}
	if len(c.Purposes) != 2 || c.Purposes[0] != "date" || c.Purposes[1] != "work" {
		t.Errorf("expected purposes [date work], got %v", c.Purposes)
	}
	if c.LastWornOn != nil {
		t.Errorf("expected no last worn date, got %v", c.LastWornOn)
	}

	got, err := GetClothing(ctx, database, user.ID, c.ID)
	if err != nil {
		t.Fatalf("GetClothing: %v", err)
	}
	if got == nil || got.Color != "navy" {
		t.Errorf("expected navy item, got %+v", got)
	}
}

func TestCreateClothingRequiresPurpose(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	_, err := CreateClothing(ctx, database, user.ID, model.KindShort, "black", []string{" ", ""})
	if !errors.Is(err, ErrNoPurposes) {
		t.Errorf("expected ErrNoPurposes, got %v", err)
	}

	_, err = CreateClothing(ctx, database, user.ID, model.Kind{}, "black", []string{"work"})
	if err == nil {
		t.Error("expected error for zero kind")
	}
}

func TestClothingIsScopedToOwner(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := newTestUser(t, database, "alice")
	bob := newTestUser(t, database, "bob")

	c, _ := CreateClothing(ctx, database, alice.ID, model.KindShort, "beige", []string{"date"})

	got, err := GetClothing(ctx, database, bob.ID, c.ID)
	if err != nil {
		t.Fatalf("GetClothing: %v", err)
	}
	if got != nil {
		t.Error("expected other user's item to be invisible")
	}

	if err := DeleteClothing(ctx, database, bob.ID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting another user's item, got %v", err)
	}

	closet, _ := ListClothing(ctx, database, bob.ID, "")
	if len(closet) != 0 {
		t.Errorf("expected empty closet for bob, got %d items", len(closet))
	}
}

func TestListClothingByCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	CreateClothing(ctx, database, user.ID, model.KindShortSleeve, "white", []string{"work"})
	CreateClothing(ctx, database, user.ID, model.KindLongSleeveHeavy, "gray", []string{"work"})
	CreateClothing(ctx, database, user.ID, model.KindLong, "black", []string{"work"})

	all, err := ListClothing(ctx, database, user.ID, "")
	if err != nil {
		t.Fatalf("ListClothing: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}

	tops, _ := ListClothing(ctx, database, user.ID, model.CategoryTop)
	if len(tops) != 2 {
		t.Errorf("expected 2 tops, got %d", len(tops))
	}
	for _, c := range tops {
		if c.Kind.Category() != model.CategoryTop {
			t.Errorf("expected only tops, got %v", c.Kind)
		}
	}
}

func TestUpdateClothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	c, _ := CreateClothing(ctx, database, user.ID, model.KindShort, "khaki", []string{"university"})

	err := UpdateClothing(ctx, database, user.ID, c.ID, model.KindLong, "olive", []string{"work", "university"})
	if err != nil {
		t.Fatalf("UpdateClothing: %v", err)
	}

	got, _ := GetClothing(ctx, database, user.ID, c.ID)
	if got.Kind != model.KindLong || got.Color != "olive" {
		t.Errorf("expected long olive item, got %v %q", got.Kind, got.Color)
	}
	if !got.HasPurpose("work") || !got.HasPurpose("university") {
		t.Errorf("expected both purposes, got %v", got.Purposes)
	}

	if err := UpdateClothing(ctx, database, user.ID, "missing", model.KindLong, "olive", []string{"work"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClothingPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	c, _ := CreateClothing(ctx, database, user.ID, model.KindShortSleeve, "red", []string{"date"})

	data, _, err := GetClothingPhoto(ctx, database, user.ID, c.ID)
	if err != nil {
		t.Fatalf("GetClothingPhoto: %v", err)
	}
	if data != nil {
		t.Error("expected no photo yet")
	}

	if err := SetClothingPhoto(ctx, database, user.ID, c.ID, []byte("jpegdata"), "image/jpeg"); err != nil {
		t.Fatalf("SetClothingPhoto: %v", err)
	}

	data, mime, _ := GetClothingPhoto(ctx, database, user.ID, c.ID)
	if string(data) != "jpegdata" || mime != "image/jpeg" {
		t.Errorf("expected stored photo, got %q %q", data, mime)
	}
}

func TestClothingDetection(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	c, _ := CreateClothing(ctx, database, user.ID, model.KindShortSleeve, "blue", []string{"work"})

	kind := model.KindShortSleeve
	det := &model.Detection{
		Kind:       &kind,
		Colors:     []model.DetectedColor{{Name: "blue", Percent: 71.5, RGB: [3]uint8{20, 40, 200}}},
		Confidence: 0.75,
		Shape:      &model.ShapeMetrics{AspectRatio: 1.1, AreaRatio: 0.6, Circularity: 0.7, Area: 5000, SizeType: "top", SizeLevel: "medium"},
	}
	if err := SetClothingDetection(ctx, database, user.ID, c.ID, det); err != nil {
		t.Fatalf("SetClothingDetection: %v", err)
	}

	got, _ := GetClothing(ctx, database, user.ID, c.ID)
	if got.Detection == nil {
		t.Fatal("expected detection")
	}
	if got.Detection.Kind == nil || *got.Detection.Kind != model.KindShortSleeve {
		t.Errorf("expected detected kind short sleeve, got %v", got.Detection.Kind)
	}
	if len(got.Detection.Colors) != 1 || got.Detection.Colors[0].Name != "blue" {
		t.Errorf("expected blue detected color, got %+v", got.Detection.Colors)
	}
	if got.Detection.Shape == nil || got.Detection.Shape.SizeLevel != "medium" {
		t.Errorf("expected shape metrics, got %+v", got.Detection.Shape)
	}
}

func TestDeleteClothingCascadesWearEvents(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, database, "alice")

	top, _ := CreateClothing(ctx, database, user.ID, model.KindShortSleeve, "white", []string{"work"})
	bottom, _ := CreateClothing(ctx, database, user.ID, model.KindShort, "navy", []string{"work"})
	if _, err := RecordWear(ctx, database, user.ID, top.ID, bottom.ID, model.Day(nowForTest())); err != nil {
		t.Fatalf("RecordWear: %v", err)
	}

	if err := DeleteClothing(ctx, database, user.ID, top.ID); err != nil {
		t.Fatalf("DeleteClothing: %v", err)
	}

	events, _ := ListWearHistory(ctx, database, user.ID, "", 0)
	if len(events) != 0 {
		t.Errorf("expected wear events to be removed with the item, got %d", len(events))
	}
}
