package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/middleware"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
	"github.com/otcheredev/nutricore/internal/repository"
	"github.com/otcheredev/nutricore/internal/sessiontx"
)

// PatientsHandler is the patient data plane. Every operation goes through
// one scoped session; the handler never filters anything itself.
type PatientsHandler struct {
	audit *repository.AuditRepository
}

func NewPatientsHandler(audit *repository.AuditRepository) *PatientsHandler {
	return &PatientsHandler{audit: audit}
}

type createPatientRequest struct {
	FullName       string     `json:"full_name"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	AssignedTeamID *uuid.UUID `json:"assigned_team_id,omitempty"`
}

// CreatePatient creates a patient record in the caller's tenant
func (h *PatientsHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FullName == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patient := &models.Patient{
		FullName:       req.FullName,
		UserID:         req.UserID,
		AssignedTeamID: req.AssignedTeamID,
		Status:         models.PatientActive,
	}

	err := sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		return sc.Create(policy.ResourcePatients, patient)
	})
	if err != nil {
		respondError(w, r, h.audit, "patient.create", "patient", "", err)
		return
	}

	writeJSON(w, http.StatusCreated, patient)
}

// GetPatient returns one patient visible to the session
func (h *PatientsHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
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

	var patient models.Patient
	err = sessiontx.WithSession(r.Context(), claims, ownerOptions(r), func(sc *sessiontx.ScopedClient) error {
		return sc.First(policy.ResourcePatients, &patient, patientID)
	})
	if err != nil {
		respondError(w, r, h.audit, "patient.get", "patient", patientID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, patient)
}

// ListPatients returns every patient the session may see
func (h *PatientsHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	var patients []models.Patient
	err := sessiontx.WithSession(r.Context(), claims, ownerOptions(r), func(sc *sessiontx.ScopedClient) error {
		return sc.Find(policy.ResourcePatients, &patients)
	})
	if err != nil {
		respondError(w, r, h.audit, "patient.list", "patient", "", err)
		return
	}

	writeJSON(w, http.StatusOK, patients)
}

type updateStatusRequest struct {
	Status models.PatientStatus `json:"status"`
}

// UpdatePatientStatus transitions the patient lifecycle state. There is no
// delete endpoint for patients, by design.
func (h *PatientsHandler) UpdatePatientStatus(w http.ResponseWriter, r *http.Request) {
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

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		return sc.UpdatePatientStatus(patientID, req.Status)
	})
	if err != nil {
		respondError(w, r, h.audit, "patient.update_status", "patient", patientID.String(), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createProtocolRequest struct {
	Name string `json:"name"`
}

// CreateProtocol starts a protocol instance for a patient
func (h *PatientsHandler) CreateProtocol(w http.ResponseWriter, r *http.Request) {
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

	var req createProtocolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	protocol := &models.ProtocolInstance{
		PatientID: patientID,
		Name:      req.Name,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}

	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		return sc.Create(policy.ResourceProtocols, protocol)
	})
	if err != nil {
		respondError(w, r, h.audit, "protocol.create", "protocol_instance", patientID.String(), err)
		return
	}

	writeJSON(w, http.StatusCreated, protocol)
}

// ownerOptions turns the explicit X-Owner-Mode header into session options.
// Only OWNER claims survive the elevation; anyone else gets a policy
// violation from the session layer.
func ownerOptions(r *http.Request) *sessiontx.Options {
	if r.Header.Get("X-Owner-Mode") == "true" {
		return &sessiontx.Options{OwnerMode: true}
	}
	return nil
}
