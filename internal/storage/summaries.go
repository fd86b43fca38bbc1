// internal/storage/summaries.go
package storage

import (
	"context"
	"fmt"
	"time"

	"mcp-food-log/internal/models"
)

// Totals sums the macro fields of records logged in [from, to). A zero
// bound is open.
func (s *SQLiteStorage) Totals(ctx context.Context, from, to time.Time) (models.MacroTotals, error) {
	query := `
        SELECT COALESCE(SUM(calories), 0), COALESCE(SUM(carbs), 0),
               COALESCE(SUM(fat), 0), COALESCE(SUM(protein), 0), COUNT(*)
        FROM food_records
        WHERE 1=1
    `
	args := []interface{}{}
	if !from.IsZero() {
		query += " AND logged_at >= ?"
		args = append(args, from.UnixNano())
	}
	if !to.IsZero() {
		query += " AND logged_at < ?"
		args = append(args, to.UnixNano())
	}

	var totals models.MacroTotals
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&totals.Calories, &totals.Carbs, &totals.Fat, &totals.Protein, &totals.Count)
	if err != nil {
		return models.MacroTotals{}, fmt.Errorf("failed to sum records: %w", err)
	}
	return totals, nil
}

// DaySummary totals the calendar day containing day.
func (s *SQLiteStorage) DaySummary(ctx context.Context, day time.Time) (*models.Summary, error) {
	start, end := dayBounds(day)
	return s.summary(ctx, "day", start, end)
}

// TrailingSummary totals everything logged from days before now onwards.
// A week is TrailingSummary(ctx, now, 7). The query has no upper bound, but
// the summary reports now as its end.
func (s *SQLiteStorage) TrailingSummary(ctx context.Context, now time.Time, days int) (*models.Summary, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	summary, err := s.summary(ctx, fmt.Sprintf("last_%d_days", days), now.AddDate(0, 0, -days), time.Time{})
	if err != nil {
		return nil, err
	}
	summary.To = now
	return summary, nil
}

func (s *SQLiteStorage) summary(ctx context.Context, period string, from, to time.Time) (*models.Summary, error) {
	totals, err := s.Totals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	all, err := s.Totals(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	avg, err := s.AverageDailyCalories(ctx, from.Location())
	if err != nil {
		return nil, err
	}

	return &models.Summary{
		Period:               period,
		From:                 from,
		To:                   to,
		Totals:               totals,
		AverageDailyCalories: avg,
		TotalRecords:         all.Count,
	}, nil
}

// AverageDailyCalories divides all logged calories by the number of
// distinct calendar days (in loc) that have at least one record.
func (s *SQLiteStorage) AverageDailyCalories(ctx context.Context, loc *time.Location) (float64, error) {
	if loc == nil {
		loc = time.Local
	}

	rows, err := s.db.QueryContext(ctx, "SELECT logged_at, calories FROM food_records")
	if err != nil {
		return 0, fmt.Errorf("failed to query calories: %w", err)
	}
	defer rows.Close()

	days := map[string]struct{}{}
	var total float64
	for rows.Next() {
		var loggedAt int64
		var calories float64
		if err := rows.Scan(&loggedAt, &calories); err != nil {
			return 0, fmt.Errorf("failed to scan calories: %w", err)
		}
		days[time.Unix(0, loggedAt).In(loc).Format("2006-01-02")] = struct{}{}
		total += calories
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate calories: %w", err)
	}

	if len(days) == 0 {
		return 0, nil
	}
	return total / float64(len(days)), nil
}
