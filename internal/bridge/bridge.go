// Package bridge presents a single read/write path over the two entry
// backends: the remote hosted table and the local file. Writes try the
// remote first and fall back to the local store, so a remote outage
// degrades the session instead of dropping data.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nutrilog/internal/amqp"
	"nutrilog/internal/core"
	"nutrilog/internal/store"
	"nutrilog/internal/store/csvfile"
)

// ErrRemoteUnavailable reports that an operation requires the remote table
// and none is configured.
var ErrRemoteUnavailable = errors.New("remote backend not configured")

// Publisher announces entry changes; satisfied by *amqp.Client.
type Publisher interface {
	PublishEntryChange(ctx context.Context, operation, entryID string, degraded bool) error
}

type Bridge struct {
	remote store.EntryStore // nil when the remote table is not configured
	local  store.EntryStore
	events Publisher // optional
}

// New composes the bridge. remote may be nil (local-only operation);
// events may be nil (no change notifications).
func New(remote, local store.EntryStore, events Publisher) *Bridge {
	return &Bridge{remote: remote, local: local, events: events}
}

// RemoteConfigured reports whether writes have a remote table to try first.
func (b *Bridge) RemoteConfigured() bool {
	return b.remote != nil
}

// Write persists one entry. The remote table is attempted exactly once; on
// any failure the entry is appended to the local store and the write is
// reported as degraded success. Only when both backends fail does the
// caller see an error.
func (b *Bridge) Write(ctx context.Context, e core.Entry) (core.Entry, bool, error) {
	if b.remote != nil {
		stored, err := b.remote.Insert(ctx, e)
		if err == nil {
			b.publish(ctx, amqp.OpCreated, stored.ID, false)
			return stored, false, nil
		}
		slog.WarnContext(ctx, "Remote insert failed, falling back to local store",
			"food_name", e.FoodName, "error", err)
	}

	stored, err := b.local.Insert(ctx, e)
	if err != nil {
		return core.Entry{}, false, fmt.Errorf("write entry: local store: %w", err)
	}

	degraded := b.remote != nil
	b.publish(ctx, amqp.OpCreated, stored.ID, degraded)
	return stored, degraded, nil
}

// Entries returns every entry from the active backend. Reads fail soft:
// a remote error degrades to the local store, and a local error degrades
// to an empty collection, so callers always get something renderable.
func (b *Bridge) Entries(ctx context.Context) []core.Entry {
	return b.read(ctx, func(s store.EntryStore) ([]core.Entry, error) {
		return s.LoadAll(ctx)
	})
}

// EntriesForDate returns entries whose derived date equals day.
func (b *Bridge) EntriesForDate(ctx context.Context, day string) []core.Entry {
	return b.read(ctx, func(s store.EntryStore) ([]core.Entry, error) {
		return s.LoadForDate(ctx, day)
	})
}

// EntriesForRange returns entries within [startDay, endDay] at date
// granularity; finer time-of-day filtering happens in core.FilterByRange.
func (b *Bridge) EntriesForRange(ctx context.Context, startDay, endDay string) []core.Entry {
	return b.read(ctx, func(s store.EntryStore) ([]core.Entry, error) {
		return s.LoadForRange(ctx, startDay, endDay)
	})
}

// Update edits the record on the backend that owns the identifier, the
// active one, since that is where the caller read the id. Not-found is
// surfaced, never swallowed.
func (b *Bridge) Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error) {
	updated, err := b.active().Update(ctx, id, patch)
	if err != nil {
		return core.Entry{}, err
	}
	b.publish(ctx, amqp.OpUpdated, id, false)
	return updated, nil
}

// Delete removes the record from the active backend.
func (b *Bridge) Delete(ctx context.Context, id string) error {
	if err := b.active().Delete(ctx, id); err != nil {
		return err
	}
	b.publish(ctx, amqp.OpDeleted, id, false)
	return nil
}

// ResyncFromFile replays every row of the local file into the remote table
// in file order. It does not deduplicate against what the remote already
// holds; avoiding a double replay is the caller's responsibility. Returns
// the number of records migrated.
func (b *Bridge) ResyncFromFile(ctx context.Context, path string) (int, error) {
	if b.remote == nil {
		return 0, ErrRemoteUnavailable
	}

	entries, err := csvfile.New(path).LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read local file: %w", err)
	}

	migrated := 0
	for _, e := range entries {
		e.ID = "" // the remote assigns its own
		if _, err := b.remote.Insert(ctx, e); err != nil {
			return migrated, fmt.Errorf("resync stopped after %d records: %w", migrated, err)
		}
		migrated++
	}

	slog.InfoContext(ctx, "Resynced local file to remote table",
		"path", path, "migrated", migrated)
	return migrated, nil
}

// ExportRemoteToFile snapshots every remote record into the local file
// format at path, overwriting whatever is there.
func (b *Bridge) ExportRemoteToFile(ctx context.Context, path string) error {
	if b.remote == nil {
		return ErrRemoteUnavailable
	}

	entries, err := b.remote.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("read remote table: %w", err)
	}
	if err := csvfile.New(path).WriteAll(ctx, entries); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Exported remote table to local file",
		"path", path, "records", len(entries))
	return nil
}

func (b *Bridge) active() store.EntryStore {
	if b.remote != nil {
		return b.remote
	}
	return b.local
}

func (b *Bridge) read(ctx context.Context, load func(store.EntryStore) ([]core.Entry, error)) []core.Entry {
	if b.remote != nil {
		entries, err := load(b.remote)
		if err == nil {
			return entries
		}
		slog.WarnContext(ctx, "Remote read failed, falling back to local store", "error", err)
	}

	entries, err := load(b.local)
	if err != nil {
		slog.WarnContext(ctx, "Local read failed, returning empty collection", "error", err)
		return nil
	}
	return entries
}

// publish is best-effort: a broker problem is logged and never fails the
// operation that triggered it.
func (b *Bridge) publish(ctx context.Context, operation, entryID string, degraded bool) {
	if b.events == nil {
		return
	}
	if err := b.events.PublishEntryChange(ctx, operation, entryID, degraded); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry change",
			"operation", operation, "entry_id", entryID, "error", err)
	}
}
