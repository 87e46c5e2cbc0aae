package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/database"
	"github.com/otcheredev/nutricore/internal/integrity"
	"github.com/otcheredev/nutricore/internal/models"
	"gorm.io/gorm"
)

// IntegrityRepository is the auditor's data access. Its source queries run
// on the administrative path, deliberately outside session scoping: the
// auditor verifies isolation from the outside, so it must see everything.
// Ledger writes are append-only; nothing here updates a run or an issue.
type IntegrityRepository struct{}

// NewIntegrityRepository creates a new integrity repository
func NewIntegrityRepository() *IntegrityRepository {
	return &IntegrityRepository{}
}

// FoodItems implements integrity.DatasetSource
func (r *IntegrityRepository) FoodItems(ctx context.Context) ([]integrity.DatasetRow, error) {
	var rows []integrity.DatasetRow
	if err := database.DB.WithContext(ctx).Raw(`
		SELECT id, name, dataset_version, energy_kcal, protein_g, carbs_g, fat_g, fiber_g, sodium_mg
		FROM food_items`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load nutrient dataset: %w", err)
	}
	return rows, nil
}

// MealLines implements integrity.SnapshotSource
func (r *IntegrityRepository) MealLines(ctx context.Context) ([]integrity.MealLineRow, error) {
	var rows []integrity.MealLineRow
	if err := database.DB.WithContext(ctx).Raw(`
		SELECT mi.id AS item_id,
		       fs.id AS snapshot_id,
		       COALESCE(fs.payload, '') AS payload,
		       COALESCE(fs.content_hash, '') AS content_hash
		FROM meal_items mi
		LEFT JOIN food_snapshots fs ON fs.id = mi.snapshot_id`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load meal lines: %w", err)
	}
	return rows, nil
}

// PublishedVersions implements integrity.PublicationSource
func (r *IntegrityRepository) PublishedVersions(ctx context.Context) ([]integrity.PublishedVersionRow, error) {
	var rows []integrity.PublishedVersionRow
	if err := database.DB.WithContext(ctx).Raw(`
		SELECT pv.id AS version_id, pv.updated_at, pp.published_at
		FROM plan_versions pv
		JOIN plan_publications pp ON pp.plan_version_id = pv.id`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load published versions: %w", err)
	}
	return rows, nil
}

// CrossTenantMismatches implements integrity.RelationSource. One UNION per
// tenant-scoped relation pair; adding an entity means adding a branch here
// and nothing else.
func (r *IntegrityRepository) CrossTenantMismatches(ctx context.Context) ([]integrity.RelationRow, error) {
	var rows []integrity.RelationRow
	if err := database.DB.WithContext(ctx).Raw(`
		SELECT 'patients.user_id -> users.id' AS relation,
		       'patient' AS entity_type, p.id AS entity_id, p.tenant_id AS entity_tenant,
		       'user' AS ref_type, u.id AS ref_id, u.tenant_id AS ref_tenant
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE p.tenant_id <> u.tenant_id
		UNION ALL
		SELECT 'patients.assigned_team_id -> users.id',
		       'patient', p.id, p.tenant_id,
		       'user', u.id, u.tenant_id
		FROM patients p JOIN users u ON u.id = p.assigned_team_id
		WHERE p.tenant_id <> u.tenant_id
		UNION ALL
		SELECT 'plan_versions.patient_id -> patients.id',
		       'plan_version', pv.id, pv.tenant_id,
		       'patient', p.id, p.tenant_id
		FROM plan_versions pv JOIN patients p ON p.id = pv.patient_id
		WHERE pv.tenant_id <> p.tenant_id
		UNION ALL
		SELECT 'plan_publications.plan_version_id -> plan_versions.id',
		       'plan_publication', pp.id, pp.tenant_id,
		       'plan_version', pv.id, pv.tenant_id
		FROM plan_publications pp JOIN plan_versions pv ON pv.id = pp.plan_version_id
		WHERE pp.tenant_id <> pv.tenant_id
		UNION ALL
		SELECT 'protocol_instances.patient_id -> patients.id',
		       'protocol_instance', pi.id, pi.tenant_id,
		       'patient', p.id, p.tenant_id
		FROM protocol_instances pi JOIN patients p ON p.id = pi.patient_id
		WHERE pi.tenant_id <> p.tenant_id
		UNION ALL
		SELECT 'meals.patient_id -> patients.id',
		       'meal', m.id, m.tenant_id,
		       'patient', p.id, p.tenant_id
		FROM meals m JOIN patients p ON p.id = m.patient_id
		WHERE m.tenant_id <> p.tenant_id
		UNION ALL
		SELECT 'meal_items.meal_id -> meals.id',
		       'meal_item', mi.id, mi.tenant_id,
		       'meal', m.id, m.tenant_id
		FROM meal_items mi JOIN meals m ON m.id = mi.meal_id
		WHERE mi.tenant_id <> m.tenant_id
		UNION ALL
		SELECT 'food_snapshots.patient_id -> patients.id',
		       'food_snapshot', fs.id, fs.tenant_id,
		       'patient', p.id, p.tenant_id
		FROM food_snapshots fs JOIN patients p ON p.id = fs.patient_id
		WHERE fs.tenant_id <> p.tenant_id`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to scan cross-tenant relations: %w", err)
	}
	return rows, nil
}

// RecordRun inserts the finished run and its issues in one transaction.
// The run row is written exactly once, after completion, with both
// timestamps set; there is no update path.
func (r *IntegrityRepository) RecordRun(ctx context.Context, run *models.IntegrityCheckRun, issues []models.IntegrityIssue) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to record integrity run: %w", err)
		}
		for i := range issues {
			issues[i].RunID = run.ID
		}
		if len(issues) > 0 {
			if err := tx.CreateInBatches(issues, 200).Error; err != nil {
				return fmt.Errorf("failed to record integrity issues: %w", err)
			}
		}
		return nil
	})
}

// ListRuns returns runs newest first for the dashboard surface
func (r *IntegrityRepository) ListRuns(ctx context.Context, limit, offset int) ([]models.IntegrityCheckRun, error) {
	var runs []models.IntegrityCheckRun
	query := database.DB.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list integrity runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by id
func (r *IntegrityRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.IntegrityCheckRun, error) {
	var run models.IntegrityCheckRun
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to get integrity run: %w", err)
	}
	return &run, nil
}

// ListIssues returns every issue of one run, worst first
func (r *IntegrityRepository) ListIssues(ctx context.Context, runID uuid.UUID) ([]models.IntegrityIssue, error) {
	var issues []models.IntegrityIssue
	if err := database.DB.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC, created_at ASC").
		Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("failed to list integrity issues: %w", err)
	}
	return issues, nil
}
