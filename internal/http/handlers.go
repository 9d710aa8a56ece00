package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nutrilog/internal/core"
	"nutrilog/internal/store"
)

// entryJSON is the wire form of an entry. The date field is derived on the
// way out and never accepted as input.
type entryJSON struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Date      string `json:"date"`
	FoodName  string `json:"food_name"`
	Calories  int    `json:"calories"`
	Protein   int    `json:"protein"`
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		ID:        e.ID,
		Timestamp: e.CanonicalTimestamp(),
		Date:      e.DayKey(),
		FoodName:  e.FoodName,
		Calories:  e.Calories,
		Protein:   e.ProteinGrams,
	}
}

func toEntryListJSON(entries []core.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryJSON(e))
	}
	return out
}

type createEntryRequest struct {
	FoodName  string `json:"food_name"`
	Calories  int    `json:"calories"`
	Protein   int    `json:"protein"`
	Timestamp string `json:"timestamp,omitempty"`
}

type updateEntryRequest struct {
	FoodName  *string `json:"food_name,omitempty"`
	Calories  *int    `json:"calories,omitempty"`
	Protein   *int    `json:"protein,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyFoodName),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrBadTimestamp),
		errors.Is(err, core.ErrNonPositiveGoal):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := core.ParseTimestamp(req.Timestamp)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		ts = parsed
	}

	entry := core.Entry{
		Timestamp:    ts,
		FoodName:     req.FoodName,
		Calories:     req.Calories,
		ProteinGrams: req.Protein,
	}
	if err := entry.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	stored, degraded, err := s.bridge.Write(r.Context(), entry)
	if err != nil {
		slog.ErrorContext(r.Context(), "Entry write failed", "error", err, "food_name", entry.FoodName)
		writeError(w, http.StatusInternalServerError, errors.New("failed to store entry"))
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Entry    entryJSON `json:"entry"`
		Degraded bool      `json:"degraded"`
	}{Entry: toEntryJSON(stored), Degraded: degraded})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.bridge.Entries(r.Context())
	core.SortByTimestampDesc(entries)
	writeJSON(w, http.StatusOK, toEntryListJSON(entries))
}

func (s *Server) handleTodayEntries(w http.ResponseWriter, r *http.Request) {
	day := time.Now().Format(core.DayLayout)
	entries := s.bridge.EntriesForDate(r.Context(), day)
	core.SortByTimestampDesc(entries)
	writeJSON(w, http.StatusOK, toEntryListJSON(entries))
}

func (s *Server) handleRangeEntries(w http.ResponseWriter, r *http.Request) {
	start, end, err := dayRangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries := s.bridge.EntriesForRange(r.Context(), start.Format(core.DayLayout), end.Format(core.DayLayout))
	core.SortByTimestampDesc(entries)
	writeJSON(w, http.StatusOK, toEntryListJSON(entries))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	patch := core.EntryPatch{
		Timestamp:    req.Timestamp,
		FoodName:     req.FoodName,
		Calories:     req.Calories,
		ProteinGrams: req.Protein,
	}
	updated, err := s.bridge.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryJSON(updated))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.bridge.Delete(r.Context(), id); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dayRangeParams parses the required start and end query parameters as
// calendar dates and checks their order.
func dayRangeParams(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.New("start and end query parameters are required")
	}
	start, err := time.ParseInLocation(core.DayLayout, startStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be a YYYY-MM-DD date")
	}
	end, err := time.ParseInLocation(core.DayLayout, endStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be a YYYY-MM-DD date")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end must not precede start")
	}
	return start, end, nil
}
