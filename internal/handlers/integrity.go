package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/services"
	"github.com/rs/zerolog/log"
)

// IntegrityHandler exposes the auditor control plane: trigger a run,
// browse the ledger. The run itself bypasses tenant scoping internally;
// routes are gated to administrative roles by the router.
type IntegrityHandler struct {
	service *services.IntegrityService
}

func NewIntegrityHandler(service *services.IntegrityService) *IntegrityHandler {
	return &IntegrityHandler{service: service}
}

// TriggerRun starts a full integrity run now. The trigger takes no
// parameters; the run audits everything, every time.
func (h *IntegrityHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Error().Err(err).Msg("Integrity run failed")
		http.Error(w, "Integrity run failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// ListRuns returns recorded runs, newest first
func (h *IntegrityHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	runs, err := h.service.ListRuns(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list integrity runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// GetRunIssues returns one run with all its issues
func (h *IntegrityHandler) GetRunIssues(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		http.Error(w, "Invalid run ID", http.StatusBadRequest)
		return
	}

	run, issues, err := h.service.GetRunIssues(r.Context(), runID)
	if err != nil {
		respondError(w, r, nil, "integrity.get_run", "integrity_check_run", runID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":    run,
		"issues": issues,
	})
}

// LatestSummary serves the cached most-recent run for dashboards
func (h *IntegrityHandler) LatestSummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.LatestSummary(r.Context())
	if err != nil {
		http.Error(w, "No integrity runs recorded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
