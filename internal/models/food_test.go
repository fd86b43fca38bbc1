package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNutritionRecord(t *testing.T) {
	now := time.Now()

	t.Run("stamps id and date", func(t *testing.T) {
		a, err := NewNutritionRecord("Banana", 105, 27, 0, 1, now, SourcePhoto)
		require.NoError(t, err)
		b, err := NewNutritionRecord("Banana", 105, 27, 0, 1, now, SourcePhoto)
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.True(t, a.Date.Equal(now))
		assert.Equal(t, SourcePhoto, a.Source)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		record, err := NewNutritionRecord("", 1, 1, 1, 1, now, SourceManual)
		assert.Error(t, err)
		assert.Nil(t, record)
	})

	t.Run("rejects negative macros", func(t *testing.T) {
		record, err := NewNutritionRecord("Toast", 80, -1, 1, 3, now, SourceManual)
		assert.Error(t, err)
		assert.Nil(t, record)
	})

	t.Run("rejects non-finite macros", func(t *testing.T) {
		for _, v := range []float64{math.Inf(1), math.NaN()} {
			record, err := NewNutritionRecord("Cake", v, 1, 1, 1, now, SourcePhoto)
			assert.Error(t, err)
			assert.Nil(t, record)

			record, err = NewNutritionRecord("Cake", 1, 1, 1, v, now, SourcePhoto)
			assert.Error(t, err)
			assert.Nil(t, record)
		}
	})

	t.Run("zero macros are allowed", func(t *testing.T) {
		record, err := NewNutritionRecord("Water", 0, 0, 0, 0, now, SourceManual)
		require.NoError(t, err)
		assert.Zero(t, record.Calories)
	})
}

func TestMacroTotalsAdd(t *testing.T) {
	var totals MacroTotals
	totals.Add(&NutritionRecord{Calories: 95, Carbs: 25.1, Fat: 0.3, Protein: 0.5})
	totals.Add(&NutritionRecord{Calories: 105, Carbs: 27, Fat: 0.4, Protein: 1.3})

	assert.Equal(t, 2, totals.Count)
	assert.InDelta(t, 200, totals.Calories, 1e-9)
	assert.InDelta(t, 52.1, totals.Carbs, 1e-9)
	assert.InDelta(t, 0.7, totals.Fat, 1e-9)
	assert.InDelta(t, 1.8, totals.Protein, 1e-9)
}
