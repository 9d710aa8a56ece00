package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nutrilog/internal/core"
	"nutrilog/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "food_log.csv"))
}

func mustEntry(t *testing.T, ts, name string, kcal, protein int) core.Entry {
	t.Helper()
	parsed, err := core.ParseTimestamp(ts)
	if err != nil {
		t.Fatalf("parse %q: %v", ts, err)
	}
	return core.Entry{Timestamp: parsed, FoodName: name, Calories: kcal, ProteinGrams: protein}
}

func TestLoadAllMissingFile(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestInsertRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := []core.Entry{
		mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10),
		mustEntry(t, "2024-01-01 12:30:00", "Chicken Salad", 450, 35),
	}
	for i, e := range in {
		stored, err := s.Insert(ctx, e)
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if stored.ID == "" {
			t.Fatalf("insert %d: missing row identifier", i)
		}
	}

	out, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d entries, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].FoodName != in[i].FoodName ||
			out[i].Calories != in[i].Calories ||
			out[i].ProteinGrams != in[i].ProteinGrams ||
			out[i].CanonicalTimestamp() != in[i].CanonicalTimestamp() {
			t.Fatalf("row %d did not round-trip: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestFileHasAgreeingDateColumn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Insert(ctx, mustEntry(t, "2024-06-30 23:59:59", "Late Snack", 120, 2)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	want := "datetime,date,food_name,calories,protein\n2024-06-30 23:59:59,2024-06-30,Late Snack,120,2\n"
	if string(raw) != want {
		t.Fatalf("unexpected file contents:\n%s", raw)
	}
}

func TestLoadForRangeInclusiveDates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, ts := range []string{"2024-01-01 09:00:00", "2024-01-02 09:00:00", "2024-01-03 09:00:00", "2024-01-04 09:00:00"} {
		if _, err := s.Insert(ctx, mustEntry(t, ts, "x", 100, 5)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := s.LoadForRange(ctx, "2024-01-02", "2024-01-03")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	day, err := s.LoadForDate(ctx, "2024-01-04")
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	if len(day) != 1 {
		t.Fatalf("expected 1 entry for date, got %d", len(day))
	}
}

func TestUpdateRecomputesDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	stored, err := s.Insert(ctx, mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	ts := "2024-02-10 09:15:00"
	updated, err := s.Update(ctx, stored.ID, core.EntryPatch{Timestamp: &ts})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DayKey() != "2024-02-10" {
		t.Fatalf("date not recomputed: %s", updated.DayKey())
	}

	out, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out[0].CanonicalTimestamp() != ts {
		t.Fatalf("update not persisted: %+v", out[0])
	}
}

func TestUpdateBadTimestampMutatesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	stored, err := s.Insert(ctx, mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	bad := "yesterday-ish"
	name := "changed"
	if _, err := s.Update(ctx, stored.ID, core.EntryPatch{Timestamp: &bad, FoodName: &name}); !errors.Is(err, core.ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}

	out, _ := s.LoadAll(ctx)
	if out[0].FoodName != "Oatmeal" {
		t.Fatalf("file mutated by rejected update: %+v", out[0])
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	stored, err := s.Insert(ctx, mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.Delete(ctx, stored.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, _ := s.LoadAll(ctx)
	if len(out) != 0 {
		t.Fatalf("expected empty file after delete, got %d rows", len(out))
	}

	if err := s.Delete(ctx, "42"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, "nope", core.EntryPatch{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "food_log.csv")
	content := "datetime,date,food_name,calories,protein\n" +
		"2024-01-01 08:00:00,2024-01-01,Oatmeal,300,10\n" +
		"garbage,2024-01-01,Broken,abc,5\n" +
		"2024-01-02 09:00:00,2024-01-02,Eggs,200,14\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	entries, err := New(path).LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected malformed row skipped, got %d entries", len(entries))
	}
	if entries[1].FoodName != "Eggs" {
		t.Fatalf("unexpected surviving rows: %+v", entries)
	}
}

func TestRewriteDropsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "food_log.csv")
	content := "datetime,date,food_name,calories,protein\n" +
		"2024-01-01 08:00:00,2024-01-01,Oatmeal,300,10\n" +
		"garbage,2024-01-01,Broken,abc,5\n" +
		"2024-01-02 09:00:00,2024-01-02,Eggs,200,14\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	// Deleting Eggs (parsed index 1) rewrites the file; the unparsable row
	// is gone afterwards, not preserved verbatim.
	if err := New(path).Delete(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	want := "datetime,date,food_name,calories,protein\n" +
		"2024-01-01 08:00:00,2024-01-01,Oatmeal,300,10\n"
	if string(raw) != want {
		t.Fatalf("unexpected file after rewrite:\n%s", raw)
	}
}
