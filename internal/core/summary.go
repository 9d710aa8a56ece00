package core

import (
	"sort"
	"time"
)

// FoodCount is one row of the most-common-foods ranking.
type FoodCount struct {
	FoodName string
	Count    int
}

// DailyTotals groups entries by derived date and sums calories and protein
// independently. Days with no entries never appear as keys; callers wanting
// "today, or zero" default explicitly.
func DailyTotals(entries []Entry) map[string]Totals {
	totals := make(map[string]Totals, len(entries))
	for _, e := range entries {
		day := e.DayKey()
		t := totals[day]
		t.Calories += e.Calories
		t.ProteinGrams += e.ProteinGrams
		totals[day] = t
	}
	return totals
}

// ProgressPercent returns actual/goal as a percentage. Goal must be positive;
// the session bounds guarantee that for UI callers, but as a library function
// it fails fast instead of propagating Inf or NaN.
func ProgressPercent(actual, goal int) (float64, error) {
	if goal <= 0 {
		return 0, ErrNonPositiveGoal
	}
	return float64(actual) / float64(goal) * 100, nil
}

// FilterByRange keeps entries whose full timestamp lies in [start, end],
// inclusive at both bounds. This is the fine-grained history filter; stores
// narrow by date only and this is applied on top.
func FilterByRange(entries []Entry, start, end time.Time) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// MostCommonFoods counts occurrences of each food name, descending by count,
// ties broken by first appearance in the input, truncated to limit.
func MostCommonFoods(entries []Entry, limit int) []FoodCount {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	order := make([]string, 0)
	for i, e := range entries {
		if _, ok := counts[e.FoodName]; !ok {
			firstSeen[e.FoodName] = i
			order = append(order, e.FoodName)
		}
		counts[e.FoodName]++
	}

	ranked := make([]FoodCount, 0, len(order))
	for _, name := range order {
		ranked = append(ranked, FoodCount{FoodName: name, Count: counts[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].FoodName] < firstSeen[ranked[j].FoodName]
	})

	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// SortByTimestampDesc orders entries newest first, the order the history
// view renders. Sorting is stable so equal timestamps keep insertion order.
func SortByTimestampDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
