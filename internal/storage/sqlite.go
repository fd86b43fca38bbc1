// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mcp-food-log/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Filter narrows ListRecords. Zero values mean unbounded.
type Filter struct {
	Since time.Time // inclusive
	Until time.Time // exclusive
	Limit int
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Dates are stored as unix nanoseconds so range filters compare integers.
func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS food_records (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        calories REAL NOT NULL,
        carbs REAL NOT NULL,
        fat REAL NOT NULL,
        protein REAL NOT NULL,
        logged_at INTEGER NOT NULL,
        source TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_food_records_logged_at ON food_records(logged_at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveRecord inserts a record. Records are immutable, so saving an id that
// already exists fails rather than overwriting it.
func (s *SQLiteStorage) SaveRecord(ctx context.Context, record *models.NutritionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Date.IsZero() {
		record.Date = time.Now()
	}
	if record.Source == "" {
		record.Source = models.SourceManual
	}
	if err := record.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO food_records (id, name, calories, carbs, fat, protein, logged_at, source)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `,
		record.ID, record.Name, record.Calories, record.Carbs, record.Fat, record.Protein,
		record.Date.UnixNano(), string(record.Source))
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*models.NutritionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, calories, carbs, fat, protein, logged_at, source
        FROM food_records
        WHERE id = ?
    `, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

func (s *SQLiteStorage) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM food_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListRecords returns records newest first.
func (s *SQLiteStorage) ListRecords(ctx context.Context, filter Filter) ([]*models.NutritionRecord, error) {
	query := `
        SELECT id, name, calories, carbs, fat, protein, logged_at, source
        FROM food_records
        WHERE 1=1
    `
	args := []interface{}{}

	if !filter.Since.IsZero() {
		query += " AND logged_at >= ?"
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		query += " AND logged_at < ?"
		args = append(args, filter.Until.UnixNano())
	}

	query += " ORDER BY logged_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []*models.NutritionRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// RecordsForDay returns the records logged on the calendar day of day, in
// day's location.
func (s *SQLiteStorage) RecordsForDay(ctx context.Context, day time.Time) ([]*models.NutritionRecord, error) {
	start, end := dayBounds(day)
	return s.ListRecords(ctx, Filter{Since: start, Until: end})
}

func (s *SQLiteStorage) RecordsSince(ctx context.Context, since time.Time) ([]*models.NutritionRecord, error) {
	return s.ListRecords(ctx, Filter{Since: since})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.NutritionRecord, error) {
	record := &models.NutritionRecord{}
	var loggedAt int64
	var source string

	err := row.Scan(
		&record.ID, &record.Name, &record.Calories, &record.Carbs,
		&record.Fat, &record.Protein, &loggedAt, &source)
	if err != nil {
		return nil, err
	}

	record.Date = time.Unix(0, loggedAt)
	record.Source = models.Source(source)
	return record, nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
