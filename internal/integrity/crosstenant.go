package integrity

import (
	"context"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
)

// RelationRow is one foreign-key pair whose two sides disagree on tenant
type RelationRow struct {
	Relation     string
	EntityType   string
	EntityID     uuid.UUID
	EntityTenant uuid.UUID
	RefType      string
	RefID        uuid.UUID
	RefTenant    uuid.UUID
}

// RelationSource provides the tenant mismatches found across every
// tenant-scoped relation pair.
type RelationSource interface {
	CrossTenantMismatches(ctx context.Context) ([]RelationRow, error)
}

// CrossTenantCheck is the direct, independent verification that tenant
// isolation has held in practice, not merely in policy: for each linked
// pair of tenant-scoped entities, both sides must share a tenant. Every
// mismatch is CRITICAL and names exactly which two tenants collided.
type CrossTenantCheck struct {
	src RelationSource
}

// NewCrossTenantCheck creates the cross-tenant reference check
func NewCrossTenantCheck(src RelationSource) *CrossTenantCheck {
	return &CrossTenantCheck{src: src}
}

// Name implements Check
func (c *CrossTenantCheck) Name() string { return "cross_tenant_references" }

// Run implements Check
func (c *CrossTenantCheck) Run(ctx context.Context) ([]models.IntegrityIssue, error) {
	rows, err := c.src.CrossTenantMismatches(ctx)
	if err != nil {
		return nil, err
	}
	return EvaluateRelations(rows), nil
}

// EvaluateRelations turns fetched mismatches into issues
func EvaluateRelations(rows []RelationRow) []models.IntegrityIssue {
	var issues []models.IntegrityIssue
	for _, row := range rows {
		entityID := row.EntityID
		issues = append(issues, models.IntegrityIssue{
			Severity:   models.SeverityCritical,
			EntityType: row.EntityType,
			EntityID:   &entityID,
			Details: map[string]any{
				"relation":          row.Relation,
				"entity_tenant_id":  row.EntityTenant.String(),
				"ref_type":          row.RefType,
				"ref_id":            row.RefID.String(),
				"ref_tenant_id":     row.RefTenant.String(),
				"colliding_tenants": []string{row.EntityTenant.String(), row.RefTenant.String()},
			},
		})
	}
	return issues
}
