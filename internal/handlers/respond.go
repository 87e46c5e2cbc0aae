package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/otcheredev/nutricore/internal/middleware"
	"github.com/otcheredev/nutricore/internal/repository"
	"github.com/otcheredev/nutricore/internal/sessiontx"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps core errors to caller-facing responses. Tenant
// mismatches and missing rows are indistinguishable by design: both are a
// plain 404, never a 403 that would leak existence across tenants. Policy
// violations are validation errors and get audited.
func respondError(w http.ResponseWriter, r *http.Request, audit *repository.AuditRepository, action, resourceType, resourceID string, err error) {
	switch {
	case errors.Is(err, sessiontx.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, sessiontx.ErrPolicyViolation):
		if claims, ok := middleware.GetClaims(r.Context()); ok && audit != nil {
			// The failing unit of work rolled back; record the denial on
			// its own short-lived context so the evidence survives.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if auditErr := audit.LogDenied(ctx, claims, action, resourceType, resourceID, err.Error()); auditErr != nil {
				log.Error().Err(auditErr).Msg("Failed to write denial audit log")
			}
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Error().Err(err).Str("action", action).Msg("Request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
