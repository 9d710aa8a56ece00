package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TimestampLayout is the canonical string form of an entry timestamp,
	// identical in the local file and the remote table.
	TimestampLayout = "2006-01-02 15:04:05"

	// DayLayout is the calendar-date projection used as the grouping key.
	DayLayout = "2006-01-02"
)

type (
	// Entry is one logged meal.
	Entry struct {
		// ID is assigned by the backing store on creation. Local backends
		// derive it from row position, the remote table assigns its own.
		ID           string
		Timestamp    time.Time
		FoodName     string
		Calories     int
		ProteinGrams int
	}

	// EntryPatch carries the fields of a partial update. Nil means "leave
	// unchanged". Timestamp arrives as the raw user string so it can be
	// rejected before anything is mutated.
	EntryPatch struct {
		Timestamp    *string
		FoodName     *string
		Calories     *int
		ProteinGrams *int
	}

	// Totals is the per-day sum pair.
	Totals struct {
		Calories     int
		ProteinGrams int
	}
)

var (
	ErrEmptyFoodName   = errors.New("empty food name")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrBadTimestamp    = errors.New("unparsable timestamp")
	ErrNonPositiveGoal = errors.New("goal must be positive")
)

// DayKey returns the entry's derived calendar date. It is always computed
// from Timestamp; no store accepts it as independent input.
func (e Entry) DayKey() string {
	return e.Timestamp.Format(DayLayout)
}

// CanonicalTimestamp returns the timestamp in the single on-disk/on-wire form.
func (e Entry) CanonicalTimestamp() string {
	return e.Timestamp.Format(TimestampLayout)
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.FoodName) == "" {
		return ErrEmptyFoodName
	}
	if e.Calories < 0 {
		return fmt.Errorf("calories: %w", ErrNegativeAmount)
	}
	if e.ProteinGrams < 0 {
		return fmt.Errorf("protein: %w", ErrNegativeAmount)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp: %w", ErrBadTimestamp)
	}
	return nil
}

// ParseTimestamp parses a user- or file-supplied timestamp. The canonical
// layout is tried first; a bare date is accepted and lands on midnight, which
// mirrors how rows without a time component were repaired in old log files.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, time.RFC3339, DayLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// Apply returns a copy of e with the patch applied. The timestamp string is
// validated before anything else, and the patched entry is validated as a
// whole before it is returned, so a bad edit leaves the entry untouched and
// an invalid result never reaches a store's write path.
func (p EntryPatch) Apply(e Entry) (Entry, error) {
	if p.Timestamp != nil {
		ts, err := ParseTimestamp(*p.Timestamp)
		if err != nil {
			return Entry{}, err
		}
		e.Timestamp = ts
	}
	if p.FoodName != nil {
		e.FoodName = *p.FoodName
	}
	if p.Calories != nil {
		e.Calories = *p.Calories
	}
	if p.ProteinGrams != nil {
		e.ProteinGrams = *p.ProteinGrams
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}
