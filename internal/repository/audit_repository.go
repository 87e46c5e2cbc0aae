package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/database"
	"github.com/otcheredev/nutricore/internal/models"
)

// AuditRepository records access-control decisions. Denial entries are
// written outside the failing unit of work on purpose: the rolled-back
// transaction must not take its own evidence down with it.
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := database.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// LogDenied records a rejected operation for a session
func (r *AuditRepository) LogDenied(ctx context.Context, claims models.SessionClaims, action, resourceType, resourceID, detail string) error {
	return r.Create(ctx, &models.AuditLog{
		TenantID:     claims.TenantID,
		UserID:       claims.UserID,
		Role:         claims.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       "denied",
		Detail:       detail,
	})
}

// GetByTenantID retrieves audit logs for a tenant
func (r *AuditRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := database.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}

	return logs, nil
}
