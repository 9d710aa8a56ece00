package core

import (
	"errors"
	"testing"
	"time"
)

func TestDayKeyFollowsTimestamp(t *testing.T) {
	e := Entry{
		Timestamp:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local),
		FoodName:     "Oatmeal",
		Calories:     300,
		ProteinGrams: 10,
	}
	if e.DayKey() != "2024-01-01" {
		t.Fatalf("unexpected day key: %q", e.DayKey())
	}

	ts := "2024-02-15 19:30:00"
	patched, err := (EntryPatch{Timestamp: &ts}).Apply(e)
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if patched.DayKey() != "2024-02-15" {
		t.Fatalf("day key not recomputed after timestamp change: %q", patched.DayKey())
	}
}

func TestParseTimestampCanonicalRoundTrip(t *testing.T) {
	in := "2024-01-01 08:05:09"
	ts, err := ParseTimestamp(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := (Entry{Timestamp: ts}).CanonicalTimestamp(); got != in {
		t.Fatalf("round trip mismatch: got %q want %q", got, in)
	}
}

func TestParseTimestampBareDate(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-10")
	if err != nil {
		t.Fatalf("parse bare date: %v", err)
	}
	if ts.Hour() != 0 || ts.Minute() != 0 || ts.Second() != 0 {
		t.Fatalf("bare date should land on midnight, got %v", ts)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := ParseTimestamp("not a time"); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
}

func TestPatchWithBadTimestampLeavesEntryUntouched(t *testing.T) {
	e := Entry{Timestamp: time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local), FoodName: "Toast"}
	bad := "2024-13-45 99:00:00"
	name := "changed"
	_, err := (EntryPatch{Timestamp: &bad, FoodName: &name}).Apply(e)
	if !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
	if e.FoodName != "Toast" {
		t.Fatalf("entry mutated on failed patch: %+v", e)
	}
}

func TestPatchRejectsInvalidResult(t *testing.T) {
	e := Entry{
		Timestamp:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local),
		FoodName:     "Toast",
		Calories:     120,
		ProteinGrams: 4,
	}

	negative := -50
	if _, err := (EntryPatch{Calories: &negative}).Apply(e); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount for negative calories, got %v", err)
	}
	if _, err := (EntryPatch{ProteinGrams: &negative}).Apply(e); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount for negative protein, got %v", err)
	}

	blank := "   "
	if _, err := (EntryPatch{FoodName: &blank}).Apply(e); !errors.Is(err, ErrEmptyFoodName) {
		t.Fatalf("expected ErrEmptyFoodName for blank name, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	ok := Entry{Timestamp: time.Now(), FoodName: "Eggs", Calories: 150, ProteinGrams: 12}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	cases := []struct {
		name string
		e    Entry
		want error
	}{
		{"empty name", Entry{Timestamp: time.Now(), FoodName: "  "}, ErrEmptyFoodName},
		{"negative calories", Entry{Timestamp: time.Now(), FoodName: "x", Calories: -1}, ErrNegativeAmount},
		{"negative protein", Entry{Timestamp: time.Now(), FoodName: "x", ProteinGrams: -1}, ErrNegativeAmount},
		{"zero timestamp", Entry{FoodName: "x"}, ErrBadTimestamp},
	}
	for _, tc := range cases {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}
