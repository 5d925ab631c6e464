package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Category is the top-level kind of a clothing item.
type Category string

// Categories.
const (
	CategoryTop    Category = "top"
	CategoryBottom Category = "bottom"
)

// Subcategory is the weather-sensitivity class within a category.
type Subcategory string

// Top subcategories.
const (
	ShortSleeve     Subcategory = "short_sleeve"
	LongSleeveLight Subcategory = "long_sleeve_light"
	LongSleeveHeavy Subcategory = "long_sleeve_heavy"
)

// Bottom subcategories.
const (
	Short Subcategory = "short"
	Long  Subcategory = "long"
)

var subcategories = map[Category][]Subcategory{
	CategoryTop:    {ShortSleeve, LongSleeveLight, LongSleeveHeavy},
	CategoryBottom: {Short, Long},
}

// Subcategories returns the valid subcategories of c, or nil for an unknown category.
func Subcategories(c Category) []Subcategory {
	return slices.Clone(subcategories[c])
}

// Kind is a category together with one of its subcategories. The fields are
// unexported so a Kind can only be built through ParseKind or the predeclared
// values below; the zero Kind is invalid.
type Kind struct {
	category    Category
	subcategory Subcategory
}

// Valid kinds.
var (
	KindShortSleeve     = Kind{CategoryTop, ShortSleeve}
	KindLongSleeveLight = Kind{CategoryTop, LongSleeveLight}
	KindLongSleeveHeavy = Kind{CategoryTop, LongSleeveHeavy}
	KindShort           = Kind{CategoryBottom, Short}
	KindLong            = Kind{CategoryBottom, Long}
)

// ParseKind validates a category/subcategory pair.
func ParseKind(category, subcategory string) (Kind, error) {
	subs, ok := subcategories[Category(category)]
	if !ok {
		return Kind{}, fmt.Errorf("unknown category %q", category)
	}
	if !slices.Contains(subs, Subcategory(subcategory)) {
		return Kind{}, fmt.Errorf("subcategory %q is not valid for category %q", subcategory, category)
	}
	return Kind{Category(category), Subcategory(subcategory)}, nil
}

// Category returns the kind's category.
func (k Kind) Category() Category { return k.category }

// Subcategory returns the kind's subcategory.
func (k Kind) Subcategory() Subcategory { return k.subcategory }

// IsZero reports whether k was never set.
func (k Kind) IsZero() bool { return k.category == "" }

func (k Kind) String() string {
	if k.IsZero() {
		return "<none>"
	}
	return string(k.category) + "/" + string(k.subcategory)
}

type kindJSON struct {
	Category    Category    `json:"category"`
	Subcategory Subcategory `json:"subcategory"`
}

// MarshalJSON encodes the kind as {"category": ..., "subcategory": ...}.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(kindJSON{k.category, k.subcategory})
}

// UnmarshalJSON decodes and validates a kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw kindJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseKind(string(raw.Category), string(raw.Subcategory))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Clothing is a single cataloged garment.
type Clothing struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	Kind       Kind       `json:"kind"`
	Color      string     `json:"color"`
	Purposes   []string   `json:"purposes"`
	LastWornOn *time.Time `json:"last_worn_on,omitempty"`
	PhotoMime  string     `json:"photo_mime,omitempty"`
	Detection  *Detection `json:"detection,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasPurpose reports whether purpose is one of the item's purpose tags.
func (c *Clothing) HasPurpose(purpose string) bool {
	return slices.Contains(c.Purposes, purpose)
}

// Detection holds what image analysis guessed about an item at upload time.
type Detection struct {
	Kind       *Kind           `json:"kind,omitempty"`
	Colors     []DetectedColor `json:"colors,omitempty"`
	Confidence float64         `json:"confidence"`
	Shape      *ShapeMetrics   `json:"shape,omitempty"`
}

// DetectedColor is one dominant color cluster.
type DetectedColor struct {
	Name    string   `json:"name"`
	Percent float64  `json:"percent"`
	RGB     [3]uint8 `json:"rgb"`
}

// ShapeMetrics describes the garment silhouette.
type ShapeMetrics struct {
	AspectRatio float64 `json:"aspect_ratio"`
	AreaRatio   float64 `json:"area_ratio"`
	Circularity float64 `json:"circularity"`
	Area        int     `json:"area"`
	SizeType    string  `json:"size_type"`
	SizeLevel   string  `json:"size_level"`
}

// Purposes are the occasions offered by the UI.
const (
	PurposeUniversity = "university"
	PurposeWork       = "work"
	PurposeDate       = "date"
)

// Purposes lists the known purposes in display order.
var Purposes = []string{PurposeUniversity, PurposeWork, PurposeDate}

// ValidPurpose reports whether p is a known purpose.
func ValidPurpose(p string) bool {
	return slices.Contains(Purposes, p)
}

// NormalizePurposes trims, drops empties and duplicates, and sorts.
func NormalizePurposes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date, expressed as midnight UTC so that
// dates compare independently of time of day and zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
