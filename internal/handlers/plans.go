package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/middleware"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
	"github.com/otcheredev/nutricore/internal/repository"
	"github.com/otcheredev/nutricore/internal/sessiontx"
)

// PlansHandler manages plan versions and their write-once publications
type PlansHandler struct {
	audit *repository.AuditRepository
}

func NewPlansHandler(audit *repository.AuditRepository) *PlansHandler {
	return &PlansHandler{audit: audit}
}

type planVersionRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreatePlanVersion creates a new, editable plan version for a patient
func (h *PlansHandler) CreatePlanVersion(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	var req planVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	version := &models.PlanVersion{
		PatientID: patientID,
		Title:     req.Title,
		Body:      req.Body,
	}

	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		// Version numbers count existing versions for the patient inside
		// the same transaction, so concurrent creates cannot skip or reuse.
		var existing []models.PlanVersion
		if err := sc.Find(policy.ResourcePlans, &existing, "plan_versions.patient_id = ?", patientID); err != nil {
			return err
		}
		version.Version = len(existing) + 1
		return sc.Create(policy.ResourcePlans, version)
	})
	if err != nil {
		respondError(w, r, h.audit, "plan.create", "plan_version", patientID.String(), err)
		return
	}

	writeJSON(w, http.StatusCreated, version)
}

// UpdatePlanVersion edits an unpublished version. Published versions are
// frozen; the session layer rejects the write before storage.
func (h *PlansHandler) UpdatePlanVersion(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	versionID, err := uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	var req planVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updates := map[string]any{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Body != "" {
		updates["body"] = req.Body
	}
	if len(updates) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		return sc.Updates(policy.ResourcePlans, versionID, updates)
	})
	if err != nil {
		respondError(w, r, h.audit, "plan.update", "plan_version", versionID.String(), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublishPlan freezes a plan version behind its publication record
func (h *PlansHandler) PublishPlan(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	versionID, err := uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	var publication *models.PlanPublication
	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		publication, err = sc.PublishPlanVersion(versionID)
		return err
	})
	if err != nil {
		respondError(w, r, h.audit, "plan.publish", "plan_version", versionID.String(), err)
		return
	}

	writeJSON(w, http.StatusCreated, publication)
}

// ListPlans returns a patient's plan versions visible to the session
func (h *PlansHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	var versions []models.PlanVersion
	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		return sc.Find(policy.ResourcePlans, &versions, "plan_versions.patient_id = ?", patientID)
	})
	if err != nil {
		respondError(w, r, h.audit, "plan.list", "plan_version", patientID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}
