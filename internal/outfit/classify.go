// Package outfit turns a closet snapshot, a purpose and a temperature into a
// handful of top/bottom pairings.
package outfit

import "github.com/erazemk/garderoba/internal/model"

// Recommendation is the clothing advice for a temperature. Both subcategories
// are nil when no temperature was available.
type Recommendation struct {
	Top     *model.Subcategory `json:"top_subcategory,omitempty"`
	Bottom  *model.Subcategory `json:"bottom_subcategory,omitempty"`
	Message string             `json:"message"`
}

// Actionable reports whether the recommendation names anything to wear.
func (r Recommendation) Actionable() bool {
	return r.Top != nil || r.Bottom != nil
}

// For returns the recommended subcategory for a category, or nil.
func (r Recommendation) For(c model.Category) *model.Subcategory {
	switch c {
	case model.CategoryTop:
		return r.Top
	case model.CategoryBottom:
		return r.Bottom
	}
	return nil
}

// MessageUnavailable is the advisory when there is no temperature reading.
const MessageUnavailable = "temperature unavailable"

type band struct {
	min     float64
	top     model.Subcategory
	bottom  model.Subcategory
	message string
}

// Checked in order; the first band whose lower bound is met wins.
var bands = []band{
	{28, model.ShortSleeve, model.Short, "Hot day. Light, breathable clothes are best."},
	{20, model.LongSleeveLight, model.Long, "Comfortable temperature."},
	{15, model.LongSleeveHeavy, model.Long, "A little chilly."},
}

var coldBand = band{top: model.LongSleeveHeavy, bottom: model.Long, message: "Cold day. Consider wearing an outer layer."}

// Classify maps a temperature in degrees Celsius to a recommendation.
func Classify(temperature *float64) Recommendation {
	if temperature == nil {
		return Recommendation{Message: MessageUnavailable}
	}

	b := coldBand
	for _, candidate := range bands {
		if *temperature >= candidate.min {
			b = candidate
			break
		}
	}

	top, bottom := b.top, b.bottom
	return Recommendation{Top: &top, Bottom: &bottom, Message: b.message}
}
