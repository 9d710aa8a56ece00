package http

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"nutrilog/internal/core"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

type totalsJSON struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
}

type dailyTotalsRow struct {
	Date     string `json:"date"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
}

func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	var entries []core.Entry
	if q := r.URL.Query(); q.Get("start") != "" || q.Get("end") != "" {
		start, end, err := dayRangeParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entries = s.bridge.EntriesForRange(r.Context(),
			start.Format(core.DayLayout), end.Format(core.DayLayout))
	} else {
		entries = s.bridge.Entries(r.Context())
	}
	totals := core.DailyTotals(entries)

	rows := make([]dailyTotalsRow, 0, len(totals))
	for day, t := range totals {
		rows = append(rows, dailyTotalsRow{Date: day, Calories: t.Calories, Protein: t.ProteinGrams})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTodayTotals(w http.ResponseWriter, r *http.Request) {
	t := s.todayTotals(r)
	writeJSON(w, http.StatusOK, totalsJSON{Calories: t.Calories, Protein: t.ProteinGrams})
}

type progressSide struct {
	Actual  int     `json:"actual"`
	Goal    int     `json:"goal"`
	Percent float64 `json:"percent"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	t := s.todayTotals(r)
	goals := s.goals.Goals()

	calPct, err := core.ProgressPercent(t.Calories, goals.Calories)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	protPct, err := core.ProgressPercent(t.ProteinGrams, goals.ProteinGrams)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Date     string       `json:"date"`
		Calories progressSide `json:"calories"`
		Protein  progressSide `json:"protein"`
	}{
		Date:     time.Now().Format(core.DayLayout),
		Calories: progressSide{Actual: t.Calories, Goal: goals.Calories, Percent: calPct},
		Protein:  progressSide{Actual: t.ProteinGrams, Goal: goals.ProteinGrams, Percent: protPct},
	})
}

const defaultTopFoodsLimit = 5

type foodCountJSON struct {
	FoodName string `json:"food_name"`
	Count    int    `json:"count"`
}

func (s *Server) handleTopFoods(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopFoodsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}

	entries := s.bridge.Entries(r.Context())
	counts := core.MostCommonFoods(entries, limit)

	rows := make([]foodCountJSON, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, foodCountJSON{FoodName: c.FoodName, Count: c.Count})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) todayTotals(r *http.Request) core.Totals {
	day := time.Now().Format(core.DayLayout)
	entries := s.bridge.EntriesForDate(r.Context(), day)
	var t core.Totals
	for _, e := range entries {
		t.Calories += e.Calories
		t.ProteinGrams += e.ProteinGrams
	}
	return t
}
