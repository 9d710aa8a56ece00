package gsheet

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"nutrilog/internal/core"
)

// dataStartRow is the first worksheet row carrying an entry; row 1 is the
// header.
const dataStartRow = 2

// nextFreeRow is the 1-based worksheet row a new entry lands on. It counts
// every raw row, parseable or not, since each occupies a line.
func nextFreeRow(values [][]any) int {
	return dataStartRow + len(values)
}

// sheetRow pairs a parsed entry with its position in the worksheet.
type sheetRow struct {
	sheetRow  int // 1-based worksheet row
	numericID int64
	entry     core.Entry
}

// rowValues renders an entry as worksheet cells A:F. The date cell is derived
// from the timestamp on every write, like the local file's date column.
func rowValues(e core.Entry) []any {
	return []any{
		e.ID,
		e.CanonicalTimestamp(),
		e.DayKey(),
		e.FoodName,
		strconv.Itoa(e.Calories),
		strconv.Itoa(e.ProteinGrams),
	}
}

// parseRows converts raw value-range cells into entries. Malformed rows are
// skipped with a warning, the same load policy as the local file.
func parseRows(ctx context.Context, values [][]any) ([]sheetRow, error) {
	out := make([]sheetRow, 0, len(values))
	for i, raw := range values {
		rowNum := dataStartRow + i
		r, err := parseRow(raw)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed row in remote table",
				"row", rowNum, "error", err)
			continue
		}
		r.sheetRow = rowNum
		out = append(out, r)
	}
	return out, nil
}

func parseRow(raw []any) (sheetRow, error) {
	cols := toStrings(raw)
	if len(cols) < 6 {
		return sheetRow{}, fmt.Errorf("expected 6 columns, got %d", len(cols))
	}

	numericID, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return sheetRow{}, fmt.Errorf("id: %w", err)
	}
	ts, err := core.ParseTimestamp(cols[1])
	if err != nil {
		return sheetRow{}, err
	}
	calories, err := strconv.Atoi(cols[4])
	if err != nil {
		return sheetRow{}, fmt.Errorf("calories: %w", err)
	}
	protein, err := strconv.Atoi(cols[5])
	if err != nil {
		return sheetRow{}, fmt.Errorf("protein: %w", err)
	}

	return sheetRow{
		numericID: numericID,
		entry: core.Entry{
			ID:           cols[0],
			Timestamp:    ts,
			FoodName:     cols[3],
			Calories:     calories,
			ProteinGrams: protein,
		},
	}, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
