package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/splitlab/splitlab/internal/engine"
	"github.com/splitlab/splitlab/internal/store"
)

type HealthResponse struct {
	Status           string `json:"status"`
	ExperimentsCount int    `json:"experiments_count"`
	DBSizeBytes      int64  `json:"db_size_bytes"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	experiments, err := s.store.ListExperiments(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	_ = row.Scan(&dbSize)

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		ExperimentsCount: len(experiments),
		DBSizeBytes:      dbSize,
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
	})
}

// AssignRequest asks for the caller's variant of an experiment. Context holds
// the user attributes targeting rules are evaluated against.
type AssignRequest struct {
	UserID       string            `json:"user_id"`
	ExperimentID string            `json:"experiment_id"`
	Context      map[string]string `json:"context,omitempty"`
}

type AssignmentResponse struct {
	ExperimentID string `json:"experiment_id"`
	UserID       string `json:"user_id"`
	VariantID    string `json:"variant_id"`
	AssignedAt   int64  `json:"assigned_at"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if done := corsPreflight(w, r, http.MethodPost); done {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ExperimentID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	assignment, err := s.engine.AssignUser(r.Context(), req.UserID, req.ExperimentID, req.Context)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignmentResponse(assignment))
}

// ConvertRequest reports a conversion event under the caller's assignment.
type ConvertRequest struct {
	UserID       string   `json:"user_id"`
	ExperimentID string   `json:"experiment_id"`
	EventName    string   `json:"event_name"`
	Value        *float64 `json:"value,omitempty"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if done := corsPreflight(w, r, http.MethodPost); done {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ExperimentID == "" || req.EventName == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	if _, err := s.engine.TrackConversion(r.Context(), req.UserID, req.ExperimentID, req.EventName, req.Value); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserAssignments(w http.ResponseWriter, r *http.Request) {
	if done := corsPreflight(w, r, http.MethodGet); done {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user parameter required", http.StatusBadRequest)
		return
	}

	assignments, err := s.engine.UserExperiments(r.Context(), userID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Return empty array instead of null
	response := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		response = append(response, assignmentResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

// CreateExperimentRequest mirrors engine.CreateExperimentInput on the wire.
type CreateExperimentRequest struct {
	Name           string                `json:"name"`
	Variants       []store.Variant       `json:"variants"`
	TargetingRules []store.TargetingRule `json:"targeting_rules,omitempty"`
	Status         string                `json:"status,omitempty"`
}

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateExperiment(w, r)
	case http.MethodGet:
		experiments, err := s.store.ListExperiments(r.Context())
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, experimentsResponse(experiments))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req CreateExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || len(req.Variants) == 0 {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	exp, err := s.engine.CreateExperiment(r.Context(), engine.CreateExperimentInput{
		Name:           req.Name,
		Variants:       req.Variants,
		TargetingRules: req.TargetingRules,
		Status:         store.ExperimentStatus(req.Status),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, experimentResponse(exp))
}

// handleExperimentSubroute dispatches /api/experiments/{id}[/status|/results].
func (s *Server) handleExperimentSubroute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/experiments/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		exp, err := s.engine.GetExperiment(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, experimentResponse(exp))

	case sub == "status" && r.Method == http.MethodPost:
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Status == "" {
			http.Error(w, "Missing required fields", http.StatusBadRequest)
			return
		}
		if err := s.engine.UpdateExperimentStatus(r.Context(), id, store.ExperimentStatus(req.Status)); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case sub == "results" && r.Method == http.MethodGet:
		results, err := s.engine.ExperimentResults(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)

	default:
		http.NotFound(w, r)
	}
}

// ExperimentResponse is the wire shape of a stored experiment.
type ExperimentResponse struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Variants       []store.Variant       `json:"variants"`
	TargetingRules []store.TargetingRule `json:"targeting_rules,omitempty"`
	Status         string                `json:"status"`
	CreatedAt      int64                 `json:"created_at"`
	UpdatedAt      int64                 `json:"updated_at"`
}

func experimentResponse(exp *store.Experiment) ExperimentResponse {
	return ExperimentResponse{
		ID:             exp.ID,
		Name:           exp.Name,
		Variants:       exp.Variants,
		TargetingRules: exp.TargetingRules,
		Status:         string(exp.Status),
		CreatedAt:      exp.CreatedAt.Unix(),
		UpdatedAt:      exp.UpdatedAt.Unix(),
	}
}

func experimentsResponse(experiments []*store.Experiment) []ExperimentResponse {
	response := make([]ExperimentResponse, 0, len(experiments))
	for _, exp := range experiments {
		response = append(response, experimentResponse(exp))
	}
	return response
}

func assignmentResponse(a *store.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ExperimentID: a.ExperimentID,
		UserID:       a.UserID,
		VariantID:    a.VariantID,
		AssignedAt:   a.AssignedAt.Unix(),
	}
}

// corsPreflight sets CORS headers for public endpoints and answers OPTIONS.
// Returns true when the request was a handled preflight.
func corsPreflight(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", method+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps the engine's error taxonomy onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrExperimentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInvalidWeights):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrExperimentNotActive), errors.Is(err, engine.ErrNotAssigned):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrTargetingNotMet):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
