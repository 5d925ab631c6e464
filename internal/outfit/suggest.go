package outfit

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/erazemk/garderoba/internal/model"
)

// ErrContractViolation marks caller bugs: a non-positive count or a closet
// item without a valid kind.
var ErrContractViolation = errors.New("outfit: contract violation")

// RecencyDays is how many days back a wear still excludes an item. An item
// worn on today minus RecencyDays is excluded; one worn a day earlier is not.
const RecencyDays = 2

// Suggestion pairs one top with one bottom. Both point into the closet slice
// passed to Suggest.
type Suggestion struct {
	Top        *model.Clothing `json:"top"`
	Bottom     *model.Clothing `json:"bottom"`
	ColorScore int             `json:"color_score"`
}

// Generator produces randomized outfit suggestions. It is safe for
// concurrent use.
type Generator struct {
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used to determine today's date.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSource makes shuffling use src instead of the runtime-seeded global
// generator.
func WithSource(src rand.Source) Option {
	return func(g *Generator) { g.rng = rand.New(src) }
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Suggest returns up to count randomly chosen top/bottom pairs from closet
// that suit purpose and temperature. A nil temperature, an empty closet or no
// matching items all give an empty result and a nil error. The closet is not
// modified.
func (g *Generator) Suggest(closet []model.Clothing, purpose string, temperature *float64, count int) ([]Suggestion, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrContractViolation, count)
	}
	if err := validate(closet); err != nil {
		return nil, err
	}

	rec := Classify(temperature)
	if !rec.Actionable() {
		return []Suggestion{}, nil
	}

	tops, bottoms := Eligible(closet, purpose, rec, g.now())
	if len(tops) == 0 || len(bottoms) == 0 {
		return []Suggestion{}, nil
	}

	pairs := make([]Suggestion, 0, len(tops)*len(bottoms))
	for _, top := range tops {
		for _, bottom := range bottoms {
			pairs = append(pairs, Suggestion{
				Top:        top,
				Bottom:     bottom,
				ColorScore: ColorMatchScore(top.Color, bottom.Color),
			})
		}
	}

	g.shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	return pairs[:min(count, len(pairs))], nil
}

// Eligible splits closet into the tops and bottoms that may be suggested for
// purpose under rec on the day of now. Filtering is deterministic and keeps
// closet order. Items with a zero kind are skipped; Suggest rejects them
// before getting here.
func Eligible(closet []model.Clothing, purpose string, rec Recommendation, now time.Time) (tops, bottoms []*model.Clothing) {
	cutoff := model.Day(now).AddDate(0, 0, -RecencyDays)

	for i := range closet {
		item := &closet[i]
		if !item.HasPurpose(purpose) {
			continue
		}
		if item.LastWornOn != nil && !model.Day(*item.LastWornOn).Before(cutoff) {
			continue
		}

		want := rec.For(item.Kind.Category())
		if want == nil || item.Kind.Subcategory() != *want {
			continue
		}

		switch item.Kind.Category() {
		case model.CategoryTop:
			tops = append(tops, item)
		case model.CategoryBottom:
			bottoms = append(bottoms, item)
		}
	}
	return tops, bottoms
}

func validate(closet []model.Clothing) error {
	for i := range closet {
		if closet[i].Kind.IsZero() {
			return fmt.Errorf("%w: item %q has no category", ErrContractViolation, closet[i].ID)
		}
	}
	return nil
}

func (g *Generator) shuffle(n int, swap func(i, j int)) {
	if g.rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(n, swap)
}
