// internal/models/food.go
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// NutritionRecord is a single logged food. Records are created once and
// never mutated; a correction is a delete followed by a new record.
type NutritionRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name" validate:"required"`
	Calories float64   `json:"calories" validate:"gte=0"`
	Carbs    float64   `json:"carbs" validate:"gte=0"`
	Fat      float64   `json:"fat" validate:"gte=0"`
	Protein  float64   `json:"protein" validate:"gte=0"`
	Date     time.Time `json:"date"`
	Source   Source    `json:"source"`
}

type Source string

const (
	SourcePhoto  Source = "photo"
	SourceManual Source = "manual"
)

// MacroTotals is the sum of the macro fields over a set of records.
type MacroTotals struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Protein  float64 `json:"protein"`
	Count    int     `json:"count"`
}

// Add folds a record into the totals.
func (t *MacroTotals) Add(r *NutritionRecord) {
	t.Calories += r.Calories
	t.Carbs += r.Carbs
	t.Fat += r.Fat
	t.Protein += r.Protein
	t.Count++
}

type Summary struct {
	Period               string      `json:"period"`
	From                 time.Time   `json:"from"`
	To                   time.Time   `json:"to"`
	Totals               MacroTotals `json:"totals"`
	AverageDailyCalories float64     `json:"average_daily_calories"`
	TotalRecords         int         `json:"total_records"`
}

var validate = validator.New()

// NewNutritionRecord builds a record stamped with a fresh id and the given
// time. It returns an error instead of a partially filled record.
func NewNutritionRecord(name string, calories, carbs, fat, protein float64, date time.Time, source Source) (*NutritionRecord, error) {
	record := &NutritionRecord{
		ID:       uuid.NewString(),
		Name:     name,
		Calories: calories,
		Carbs:    carbs,
		Fat:      fat,
		Protein:  protein,
		Date:     date,
		Source:   source,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Validate checks the struct tags and that every macro is finite; an
// infinite or NaN value cannot be encoded as JSON.
func (r *NutritionRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid nutrition record: %w", err)
	}
	for field, v := range map[string]float64{
		"calories": r.Calories,
		"carbs":    r.Carbs,
		"fat":      r.Fat,
		"protein":  r.Protein,
	} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("invalid nutrition record: %s is not a finite number", field)
		}
	}
	return nil
}
