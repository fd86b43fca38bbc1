package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-food-log/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "food-log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveAt(t *testing.T, store *SQLiteStorage, name string, calories float64, at time.Time) *models.NutritionRecord {
	t.Helper()
	record := &models.NutritionRecord{
		Name:     name,
		Calories: calories,
		Carbs:    calories / 10,
		Fat:      calories / 20,
		Protein:  calories / 40,
		Date:     at,
		Source:   models.SourceManual,
	}
	require.NoError(t, store.SaveRecord(context.Background(), record))
	return record
}

func TestSQLiteStorage_SaveAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	t.Run("round trip keeps decimals and date", func(t *testing.T) {
		date := time.Date(2026, 3, 14, 12, 30, 15, 123456789, time.Local)
		original := &models.NutritionRecord{
			ID:       "apple-1",
			Name:     "Apple",
			Calories: 95.0,
			Carbs:    25.1,
			Fat:      0.3,
			Protein:  0.5,
			Date:     date,
			Source:   models.SourcePhoto,
		}
		require.NoError(t, store.SaveRecord(ctx, original))

		got, err := store.GetRecord(ctx, "apple-1")
		require.NoError(t, err)
		assert.Equal(t, original.Name, got.Name)
		assert.Equal(t, 25.1, got.Carbs)
		assert.Equal(t, 0.3, got.Fat)
		assert.True(t, got.Date.Equal(date), "got %v want %v", got.Date, date)
		assert.Equal(t, models.SourcePhoto, got.Source)
	})

	t.Run("fills id, date and source", func(t *testing.T) {
		before := time.Now()
		record := &models.NutritionRecord{Name: "Toast", Calories: 80}
		require.NoError(t, store.SaveRecord(ctx, record))

		assert.NotEmpty(t, record.ID)
		assert.False(t, record.Date.Before(before))
		assert.Equal(t, models.SourceManual, record.Source)
	})

	t.Run("rejects invalid records", func(t *testing.T) {
		assert.Error(t, store.SaveRecord(ctx, &models.NutritionRecord{Name: ""}))
		assert.Error(t, store.SaveRecord(ctx, &models.NutritionRecord{Name: "x", Fat: -1}))
		assert.Error(t, store.SaveRecord(ctx, &models.NutritionRecord{Name: "x", Calories: math.Inf(1)}))
	})

	t.Run("duplicate id does not overwrite", func(t *testing.T) {
		err := store.SaveRecord(ctx, &models.NutritionRecord{ID: "apple-1", Name: "Pear", Calories: 1})
		assert.Error(t, err)

		got, err := store.GetRecord(ctx, "apple-1")
		require.NoError(t, err)
		assert.Equal(t, "Apple", got.Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.GetRecord(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLiteStorage_Delete(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	keep := saveAt(t, store, "Rice", 200, time.Now())
	drop := saveAt(t, store, "Beans", 150, time.Now())

	require.NoError(t, store.DeleteRecord(ctx, drop.ID))
	assert.ErrorIs(t, store.DeleteRecord(ctx, drop.ID), ErrNotFound)

	records, err := store.ListRecords(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep.ID, records[0].ID)
}

func TestSQLiteStorage_ListOrderAndFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.Local)
	saveAt(t, store, "late dinner yesterday", 700, day.Add(-time.Minute))
	saveAt(t, store, "breakfast", 300, day.Add(8*time.Hour))
	saveAt(t, store, "lunch", 600, day.Add(13*time.Hour))
	saveAt(t, store, "midnight snack", 150, day.Add(24*time.Hour))

	t.Run("newest first", func(t *testing.T) {
		records, err := store.ListRecords(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "midnight snack", records[0].Name)
		assert.Equal(t, "late dinner yesterday", records[3].Name)
	})

	t.Run("limit", func(t *testing.T) {
		records, err := store.ListRecords(ctx, Filter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "lunch", records[1].Name)
	})

	t.Run("calendar day", func(t *testing.T) {
		records, err := store.RecordsForDay(ctx, day.Add(15*time.Hour))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "lunch", records[0].Name)
		assert.Equal(t, "breakfast", records[1].Name)
	})

	t.Run("since", func(t *testing.T) {
		records, err := store.RecordsSince(ctx, day.Add(12*time.Hour))
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		records, err := store.RecordsForDay(ctx, day.AddDate(1, 0, 0))
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestSQLiteStorage_Summaries(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	now := time.Date(2026, 5, 10, 18, 0, 0, 0, time.Local)
	saveAt(t, store, "today 1", 400, now.Add(-2*time.Hour))
	saveAt(t, store, "today 2", 600, now.Add(-1*time.Hour))
	saveAt(t, store, "three days ago", 1000, now.AddDate(0, 0, -3))
	saveAt(t, store, "ten days ago", 2000, now.AddDate(0, 0, -10))

	t.Run("totals of an empty range", func(t *testing.T) {
		totals, err := store.Totals(ctx, now.AddDate(1, 0, 0), time.Time{})
		require.NoError(t, err)
		assert.Equal(t, models.MacroTotals{}, totals)
	})

	t.Run("day", func(t *testing.T) {
		summary, err := store.DaySummary(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Totals.Count)
		assert.InDelta(t, 1000, summary.Totals.Calories, 1e-9)
		assert.InDelta(t, 100, summary.Totals.Carbs, 1e-9)
		assert.InDelta(t, 50, summary.Totals.Fat, 1e-9)
		assert.InDelta(t, 25, summary.Totals.Protein, 1e-9)
		assert.Equal(t, 4, summary.TotalRecords)
	})

	t.Run("trailing week", func(t *testing.T) {
		summary, err := store.TrailingSummary(ctx, now, 7)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Totals.Count)
		assert.InDelta(t, 2000, summary.Totals.Calories, 1e-9)
		assert.Equal(t, "last_7_days", summary.Period)
		assert.True(t, summary.From.Equal(now.AddDate(0, 0, -7)))
		assert.True(t, summary.To.Equal(now), "to should be now, got %v", summary.To)
	})

	t.Run("trailing requires positive days", func(t *testing.T) {
		_, err := store.TrailingSummary(ctx, now, 0)
		assert.Error(t, err)
	})

	t.Run("average daily calories", func(t *testing.T) {
		avg, err := store.AverageDailyCalories(ctx, time.Local)
		require.NoError(t, err)
		// 4000 kcal over three distinct days
		assert.InDelta(t, 4000.0/3.0, avg, 1e-9)
	})
}

func TestSQLiteStorage_AverageDailyCaloriesEmpty(t *testing.T) {
	store := newTestStorage(t)
	avg, err := store.AverageDailyCalories(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, avg)
}
