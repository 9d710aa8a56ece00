// Package export renders entries as the downloadable CSV the history view
// offers. Column names differ from the storage format: calories is exposed
// as kcal for external consumption.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"nutrilog/internal/core"
)

// Header is the external column set, distinct from the storage header.
var Header = []string{"datetime", "kcal", "protein", "food_name"}

// Write renders the entries to w in export form.
func Write(w io.Writer, entries []core.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.CanonicalTimestamp(),
			strconv.Itoa(e.Calories),
			strconv.Itoa(e.ProteinGrams),
			e.FoodName,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

// Filename builds the download name from the selected range's dates.
func Filename(start, end time.Time) string {
	return fmt.Sprintf("nutrition_data_%s_to_%s.csv",
		start.Format(core.DayLayout), end.Format(core.DayLayout))
}
