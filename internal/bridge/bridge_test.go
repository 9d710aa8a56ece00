package bridge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"nutrilog/internal/core"
	"nutrilog/internal/store"
	"nutrilog/internal/store/csvfile"
)

// fakeStore is an in-memory EntryStore with injectable failures.
type fakeStore struct {
	entries []core.Entry
	nextID  int
	failAll bool
}

var _ store.EntryStore = (*fakeStore)(nil)

var errOutage = errors.New("simulated outage")

func (f *fakeStore) LoadAll(context.Context) ([]core.Entry, error) {
	if f.failAll {
		return nil, errOutage
	}
	return append([]core.Entry(nil), f.entries...), nil
}

func (f *fakeStore) LoadForDate(ctx context.Context, day string) ([]core.Entry, error) {
	return f.LoadForRange(ctx, day, day)
}

func (f *fakeStore) LoadForRange(_ context.Context, startDay, endDay string) ([]core.Entry, error) {
	if f.failAll {
		return nil, errOutage
	}
	var out []core.Entry
	for _, e := range f.entries {
		if day := e.DayKey(); day >= startDay && day <= endDay {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, e core.Entry) (core.Entry, error) {
	if f.failAll {
		return core.Entry{}, errOutage
	}
	f.nextID++
	e.ID = strconv.Itoa(f.nextID)
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeStore) Update(_ context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	if f.failAll {
		return core.Entry{}, errOutage
	}
	for i, e := range f.entries {
		if e.ID == id {
			updated, err := patch.Apply(e)
			if err != nil {
				return core.Entry{}, err
			}
			updated.ID = id
			f.entries[i] = updated
			return updated, nil
		}
	}
	return core.Entry{}, fmt.Errorf("entry %s: %w", id, store.ErrNotFound)
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if f.failAll {
		return errOutage
	}
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %s: %w", id, store.ErrNotFound)
}

type recordingPublisher struct {
	ops      []string
	degraded []bool
	fail     bool
}

func (r *recordingPublisher) PublishEntryChange(_ context.Context, operation, entryID string, degraded bool) error {
	if r.fail {
		return errors.New("broker down")
	}
	r.ops = append(r.ops, operation)
	r.degraded = append(r.degraded, degraded)
	return nil
}

func mustEntry(t *testing.T, ts, name string, kcal, protein int) core.Entry {
	t.Helper()
	parsed, err := core.ParseTimestamp(ts)
	if err != nil {
		t.Fatalf("parse %q: %v", ts, err)
	}
	return core.Entry{Timestamp: parsed, FoodName: name, Calories: kcal, ProteinGrams: protein}
}

func TestWritePrefersRemote(t *testing.T) {
	remote := &fakeStore{}
	local := &fakeStore{}
	b := New(remote, local, nil)

	stored, degraded, err := b.Write(context.Background(), mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if degraded {
		t.Fatal("healthy remote write must not be degraded")
	}
	if stored.ID == "" || len(remote.entries) != 1 || len(local.entries) != 0 {
		t.Fatalf("entry should land on the remote: remote=%d local=%d", len(remote.entries), len(local.entries))
	}
}

func TestWriteFallsBackOnRemoteOutage(t *testing.T) {
	remote := &fakeStore{failAll: true}
	local := &fakeStore{}
	pub := &recordingPublisher{}
	b := New(remote, local, pub)

	stored, degraded, err := b.Write(context.Background(), mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10))
	if err != nil {
		t.Fatalf("degraded write must not surface an error, got %v", err)
	}
	if !degraded {
		t.Fatal("fallback write must report degraded success")
	}
	if len(local.entries) != 1 || stored.FoodName != "Oatmeal" {
		t.Fatalf("entry should land on the local store: %+v", local.entries)
	}
	if len(pub.degraded) != 1 || !pub.degraded[0] {
		t.Fatalf("change event should carry the degraded flag: %+v", pub.degraded)
	}
}

func TestWriteWithoutRemoteIsNotDegraded(t *testing.T) {
	local := &fakeStore{}
	b := New(nil, local, nil)

	_, degraded, err := b.Write(context.Background(), mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if degraded {
		t.Fatal("local-only operation is the active path, not a degradation")
	}
}

func TestWriteBothBackendsFailing(t *testing.T) {
	b := New(&fakeStore{failAll: true}, &fakeStore{failAll: true}, nil)
	if _, _, err := b.Write(context.Background(), mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10)); err == nil {
		t.Fatal("expected error when both backends fail")
	}
}

func TestReadsDegradeToLocalThenEmpty(t *testing.T) {
	remote := &fakeStore{failAll: true}
	local := &fakeStore{}
	if _, err := local.Insert(context.Background(), mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	b := New(remote, local, nil)
	if got := b.Entries(context.Background()); len(got) != 1 {
		t.Fatalf("remote outage should fall back to local entries, got %d", len(got))
	}

	local.failAll = true
	if got := b.Entries(context.Background()); got != nil {
		t.Fatalf("total outage should yield an empty collection, got %v", got)
	}
}

func TestUpdateAndDeleteSurfaceNotFound(t *testing.T) {
	b := New(nil, &fakeStore{}, nil)

	if err := b.Delete(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := b.Update(context.Background(), "missing", core.EntryPatch{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublisherFailureNeverFailsWrite(t *testing.T) {
	b := New(nil, &fakeStore{}, &recordingPublisher{fail: true})
	if _, _, err := b.Write(context.Background(), mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 300, 10)); err != nil {
		t.Fatalf("broker failure leaked into the write: %v", err)
	}
}

func TestResyncFromFileReplaysInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food_log.csv")
	file := csvfile.New(path)
	ctx := context.Background()
	for _, name := range []string{"Oatmeal", "Eggs", "Toast"} {
		if _, err := file.Insert(ctx, mustEntry(t, "2024-01-01 08:00:00", name, 100, 5)); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	remote := &fakeStore{}
	// Pre-existing remote content must not cause deduplication.
	if _, err := remote.Insert(ctx, mustEntry(t, "2024-01-01 08:00:00", "Oatmeal", 100, 5)); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	b := New(remote, file, nil)
	n, err := b.ResyncFromFile(ctx, path)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 migrated records, got %d", n)
	}
	if len(remote.entries) != 4 {
		t.Fatalf("resync must not deduplicate, remote has %d", len(remote.entries))
	}
	if remote.entries[1].FoodName != "Oatmeal" || remote.entries[3].FoodName != "Toast" {
		t.Fatalf("file order not preserved: %+v", remote.entries)
	}
}

func TestResyncWithoutRemote(t *testing.T) {
	b := New(nil, &fakeStore{}, nil)
	if _, err := b.ResyncFromFile(context.Background(), "ignored.csv"); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestExportRemoteToFileOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.csv")

	// Stale snapshot that must be replaced wholesale.
	if _, err := csvfile.New(path).Insert(ctx, mustEntry(t, "2020-01-01 00:00:00", "Stale", 1, 1)); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	remote := &fakeStore{}
	for _, name := range []string{"Oatmeal", "Eggs"} {
		if _, err := remote.Insert(ctx, mustEntry(t, "2024-01-01 08:00:00", name, 100, 5)); err != nil {
			t.Fatalf("seed remote: %v", err)
		}
	}

	b := New(remote, &fakeStore{}, nil)
	if err := b.ExportRemoteToFile(ctx, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	got, err := csvfile.New(path).LoadAll(ctx)
	if err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
	if len(got) != 2 || got[0].FoodName != "Oatmeal" {
		t.Fatalf("snapshot not overwritten: %+v", got)
	}
}
