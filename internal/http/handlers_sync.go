package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nutrilog/internal/bridge"
	"nutrilog/internal/core"
	"nutrilog/internal/export"
)

// handleExport streams the selected range as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	start, end, err := dayRangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// The end bound covers the whole closing day. Built from components so
	// it stays 23:59:59 of the end date across DST transitions.
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, end.Location())

	entries := s.bridge.EntriesForRange(r.Context(), start.Format(core.DayLayout), end.Format(core.DayLayout))
	entries = core.FilterByRange(entries, start, endOfDay)
	core.SortByTimestampDesc(entries)

	filename := export.Filename(start, end)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, entries); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err, "filename", filename)
	}
}

type syncRequest struct {
	Path string `json:"path,omitempty"`
}

// handleResync replays every row of the local file into the remote table.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	path := s.syncPath(r)

	count, err := s.bridge.ResyncFromFile(r.Context(), path)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bridge.ErrRemoteUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, struct {
			Error    string `json:"error"`
			Uploaded int    `json:"uploaded"`
		}{Error: err.Error(), Uploaded: count})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Uploaded int    `json:"uploaded"`
		Path     string `json:"path"`
	}{Uploaded: count, Path: path})
}

// handleSyncExport snapshots the remote table over the local file.
func (s *Server) handleSyncExport(w http.ResponseWriter, r *http.Request) {
	path := s.syncPath(r)

	if err := s.bridge.ExportRemoteToFile(r.Context(), path); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bridge.ErrRemoteUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Path string `json:"path"`
	}{Path: path})
}

// syncPath reads an optional path override from the request body, falling
// back to the configured local log file. A missing or empty body is fine.
func (s *Server) syncPath(r *http.Request) string {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Path != "" {
		return req.Path
	}
	return s.csvPath
}
