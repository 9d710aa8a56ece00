// Package csvfile implements the entry store over a flat CSV file, the
// format the original log kept under data/food_log.csv.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"nutrilog/internal/core"
	"nutrilog/internal/store"
)

// Header is the exact column set of the local file. The date column is
// redundant with datetime and always rewritten from it.
var Header = []string{"datetime", "date", "food_name", "calories", "protein"}

// Store reads and writes one CSV file. A row's identifier is its decimal
// position in the loaded sequence; the file has no assigned id column.
// Update and Delete rewrite the file from the parsed entries, so rows the
// loader skipped as malformed do not survive the next edit.
type Store struct {
	path string

	// The file is not locked against other processes; this guards against
	// concurrent handlers within this one.
	mu sync.Mutex
}

var _ store.EntryStore = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location backing this store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) LoadAll(ctx context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) LoadForDate(ctx context.Context, day string) ([]core.Entry, error) {
	return s.LoadForRange(ctx, day, day)
}

func (s *Store) LoadForRange(ctx context.Context, startDay, endDay string) ([]core.Entry, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	// Canonical day keys compare correctly as strings.
	out := make([]core.Entry, 0, len(all))
	for _, e := range all {
		if day := e.DayKey(); day >= startDay && day <= endDay {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadLocked(ctx)
	if err != nil {
		return core.Entry{}, err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return core.Entry{}, fmt.Errorf("create data directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return core.Entry{}, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return core.Entry{}, fmt.Errorf("stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return core.Entry{}, fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(record(e)); err != nil {
		return core.Entry{}, fmt.Errorf("append row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return core.Entry{}, fmt.Errorf("flush %s: %w", s.path, err)
	}

	e.ID = strconv.Itoa(len(existing))
	return e, nil
}

func (s *Store) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	idx, err := rowIndex(id, len(entries))
	if err != nil {
		return core.Entry{}, err
	}

	updated, err := patch.Apply(entries[idx])
	if err != nil {
		return core.Entry{}, err
	}
	entries[idx] = updated

	if err := s.writeAllLocked(entries); err != nil {
		return core.Entry{}, err
	}
	updated.ID = id
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	idx, err := rowIndex(id, len(entries))
	if err != nil {
		return err
	}

	entries = append(entries[:idx], entries[idx+1:]...)
	return s.writeAllLocked(entries)
}

// WriteAll replaces the file contents with the given entries, used for
// backup snapshots of the remote table. Overwrites any existing file.
func (s *Store) WriteAll(_ context.Context, entries []core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAllLocked(entries)
}

func (s *Store) loadLocked(ctx context.Context) ([]core.Entry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var entries []core.Entry
	for row := 0; ; row++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		if row == 0 {
			// Header row.
			continue
		}
		e, err := parseRecord(rec)
		if err != nil {
			// Load policy: a bad row never sinks the whole file.
			slog.WarnContext(ctx, "Skipping malformed row in local file",
				"path", s.path, "row", row, "error", err)
			continue
		}
		e.ID = strconv.Itoa(len(entries))
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) writeAllLocked(entries []core.Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(record(e)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return nil
}

// record renders an entry as a file row, deriving the date column from the
// timestamp so the two can never disagree.
func record(e core.Entry) []string {
	return []string{
		e.CanonicalTimestamp(),
		e.DayKey(),
		e.FoodName,
		strconv.Itoa(e.Calories),
		strconv.Itoa(e.ProteinGrams),
	}
}

func parseRecord(rec []string) (core.Entry, error) {
	if len(rec) < 5 {
		return core.Entry{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(rec))
	}
	ts, err := core.ParseTimestamp(rec[0])
	if err != nil {
		return core.Entry{}, err
	}
	calories, err := strconv.Atoi(rec[3])
	if err != nil {
		return core.Entry{}, fmt.Errorf("calories: %w", err)
	}
	protein, err := strconv.Atoi(rec[4])
	if err != nil {
		return core.Entry{}, fmt.Errorf("protein: %w", err)
	}
	return core.Entry{
		Timestamp:    ts,
		FoodName:     rec[2],
		Calories:     calories,
		ProteinGrams: protein,
	}, nil
}

func rowIndex(id string, n int) (int, error) {
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= n {
		return 0, fmt.Errorf("row %q: %w", id, store.ErrNotFound)
	}
	return idx, nil
}
