// Package store defines the contract every entry backend satisfies.
// The local file, the SQLite database and the remote hosted table are
// interchangeable behind this interface; callers only notice that an
// assigned ID looks different.
package store

import (
	"context"
	"errors"

	"nutrilog/internal/core"
)

// ErrNotFound reports that an update or delete addressed an identifier no
// record carries. It is a distinct outcome, never conflated with success.
var ErrNotFound = errors.New("entry not found")

type (
	// EntryReader covers the query side of a backend.
	EntryReader interface {
		// LoadAll returns every stored entry. No order is guaranteed.
		LoadAll(ctx context.Context) ([]core.Entry, error)

		// LoadForDate returns entries whose derived date equals day
		// (core.DayLayout form).
		LoadForDate(ctx context.Context, day string) ([]core.Entry, error)

		// LoadForRange returns entries whose derived date lies in
		// [startDay, endDay], inclusive, compared at date granularity.
		// Time-of-day bounds are the caller's concern.
		LoadForRange(ctx context.Context, startDay, endDay string) ([]core.Entry, error)
	}

	// EntryWriter covers the mutation side of a backend. Every write path
	// normalizes the timestamp to core.TimestampLayout and recomputes the
	// stored date column from it.
	EntryWriter interface {
		// Insert appends a record and returns it with ID populated.
		Insert(ctx context.Context, e core.Entry) (core.Entry, error)

		// Update replaces the patched fields of the record matched by id.
		// An unparsable timestamp in the patch is rejected before any
		// mutation. Returns ErrNotFound when nothing matches.
		Update(ctx context.Context, id string, patch core.EntryPatch) (core.Entry, error)

		// Delete removes the record matched by id, ErrNotFound when absent.
		Delete(ctx context.Context, id string) error
	}

	// EntryStore is a full backend.
	EntryStore interface {
		EntryReader
		EntryWriter
	}
)
