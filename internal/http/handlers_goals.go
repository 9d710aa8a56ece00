package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"nutrilog/internal/session"
)

func (s *Server) handleGetGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.goals.Goals())
}

func (s *Server) handleSetGoals(w http.ResponseWriter, r *http.Request) {
	var g session.Goals
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if err := s.goals.SetGoals(g); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, s.goals.Goals())
}
