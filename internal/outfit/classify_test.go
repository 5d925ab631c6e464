package outfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/garderoba/internal/model"
)

func temp(v float64) *float64 { return &v }

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		temperature float64
		top         model.Subcategory
		bottom      model.Subcategory
	}{
		{40, model.ShortSleeve, model.Short},
		{28, model.ShortSleeve, model.Short},
		{27.9, model.LongSleeveLight, model.Long},
		{20, model.LongSleeveLight, model.Long},
		{19.99, model.LongSleeveHeavy, model.Long},
		{15, model.LongSleeveHeavy, model.Long},
		{14.9, model.LongSleeveHeavy, model.Long},
		{0, model.LongSleeveHeavy, model.Long},
		{-12, model.LongSleeveHeavy, model.Long},
	}

	for _, tt := range tests {
		rec := Classify(temp(tt.temperature))
		require.NotNil(t, rec.Top, "temperature %v", tt.temperature)
		require.NotNil(t, rec.Bottom, "temperature %v", tt.temperature)
		assert.Equal(t, tt.top, *rec.Top, "top at %v", tt.temperature)
		assert.Equal(t, tt.bottom, *rec.Bottom, "bottom at %v", tt.temperature)
		assert.NotEmpty(t, rec.Message)
		assert.True(t, rec.Actionable())
	}
}

func TestClassifyCoolAndColdDifferOnlyInMessage(t *testing.T) {
	cool := Classify(temp(16))
	cold := Classify(temp(10))

	assert.Equal(t, *cool.Top, *cold.Top)
	assert.Equal(t, *cool.Bottom, *cold.Bottom)
	assert.NotEqual(t, cool.Message, cold.Message)
}

func TestClassifyUnavailable(t *testing.T) {
	rec := Classify(nil)

	assert.Nil(t, rec.Top)
	assert.Nil(t, rec.Bottom)
	assert.Equal(t, MessageUnavailable, rec.Message)
	assert.False(t, rec.Actionable())
}

func TestRecommendationFor(t *testing.T) {
	rec := Classify(temp(30))

	assert.Equal(t, model.ShortSleeve, *rec.For(model.CategoryTop))
	assert.Equal(t, model.Short, *rec.For(model.CategoryBottom))
	assert.Nil(t, rec.For(model.Category("shoes")))
}
