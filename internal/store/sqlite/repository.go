// Package sqlite implements the entry store over a local SQLite database,
// an alternative to the flat file for users who want durable local storage
// with assigned ids.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"nutrilog/internal/core"
	"nutrilog/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.EntryStore = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectColumns = "id, datetime, date, food_name, calories, protein"

func (s *Store) LoadAll(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM entries ORDER BY datetime DESC")
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(ctx, rows)
}

func (s *Store) LoadForDate(ctx context.Context, day string) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM entries WHERE date = ? ORDER BY datetime DESC", day)
	if err != nil {
		return nil, fmt.Errorf("query entries for date: %w", err)
	}
	defer rows.Close()
	return scanEntries(ctx, rows)
}

func (s *Store) LoadForRange(ctx context.Context, startDay, endDay string) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM entries WHERE date >= ? AND date <= ? ORDER BY datetime DESC",
		startDay, endDay)
	if err != nil {
		return nil, fmt.Errorf("query entries for range: %w", err)
	}
	defer rows.Close()
	return scanEntries(ctx, rows)
}

func (s *Store) Insert(ctx context.Context, e core.Entry) (core.Entry, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (datetime, date, food_name, calories, protein) VALUES (?, ?, ?, ?, ?)",
		e.CanonicalTimestamp(), e.DayKey(), e.FoodName, e.Calories, e.ProteinGrams)
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = strconv.FormatInt(id, 10)

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID, "food_name", e.FoodName, "calories", e.Calories, "protein", e.ProteinGrams)

	return e, nil
}

func (s *Store) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}

	// Validate-then-apply: a bad timestamp must reject before any write.
	updated, err := patch.Apply(current)
	if err != nil {
		return core.Entry{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE entries SET datetime = ?, date = ?, food_name = ?, calories = ?, protein = ? WHERE id = ?",
		updated.CanonicalTimestamp(), updated.DayKey(), updated.FoodName,
		updated.Calories, updated.ProteinGrams, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry %s: %w", id, err)
	}

	updated.ID = id
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func scanEntries(ctx context.Context, rows *sql.Rows) ([]core.Entry, error) {
	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			// Same policy as the file store: skip the bad row, keep loading.
			slog.WarnContext(ctx, "Skipping malformed entry row", "error", err)
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func scanEntry(scan func(dest ...any) error) (core.Entry, error) {
	var (
		id       int64
		datetime string
		date     string
		e        core.Entry
	)
	if err := scan(&id, &datetime, &date, &e.FoodName, &e.Calories, &e.ProteinGrams); err != nil {
		return core.Entry{}, err
	}
	ts, err := core.ParseTimestamp(datetime)
	if err != nil {
		return core.Entry{}, err
	}
	e.ID = strconv.FormatInt(id, 10)
	e.Timestamp = ts
	return e, nil
}
