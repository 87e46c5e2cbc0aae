package sessiontx

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/metrics"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
	"github.com/otcheredev/nutricore/internal/snapshot"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ScopedClient is the data-access handle callers receive inside WithSession.
// It offers the store's ordinary read/write surface, transparently filtered:
// out-of-scope rows read as absent and forbidden writes fail before storage.
// Callers never see or manage the claim binding underneath.
type ScopedClient struct {
	tx        *gorm.DB
	claims    models.SessionClaims
	ownerMode bool
}

// Claims returns the session claims this client is bound to
func (c *ScopedClient) Claims() models.SessionClaims {
	return c.claims
}

func (c *ScopedClient) readScopeOf(res policy.Resource) policy.Scope {
	if c.ownerMode {
		return policy.ScopeCrossTenant
	}
	return policy.ReadScope(c.claims.Role, res)
}

func (c *ScopedClient) writeScopeOf(res policy.Resource) policy.Scope {
	if c.ownerMode {
		return policy.ScopeCrossTenant
	}
	return policy.WriteScope(c.claims.Role, res)
}

// violation records a rejected write and returns the caller-facing error
func (c *ScopedClient) violation(res policy.Resource, format string, args ...any) error {
	metrics.PolicyViolations.WithLabelValues(string(res)).Inc()
	log.Warn().
		Str("resource", string(res)).
		Str("role", string(c.claims.Role)).
		Str("tenant_id", c.claims.TenantID.String()).
		Str("user_id", c.claims.UserID.String()).
		Msg("policy violation: " + fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: "+format, append([]any{ErrPolicyViolation}, args...)...)
}

// Find loads all rows of a resource class visible to the session, optionally
// filtered by an extra condition. A role with no access gets an empty result,
// not an error.
func (c *ScopedClient) Find(res policy.Resource, dest any, conds ...any) error {
	cond, args, err := scopeCond(res, c.readScopeOf(res), c.claims, false)
	if err != nil {
		return nil // reads outside policy are empty, never distinguishable
	}
	q := c.tx
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if err := q.Find(dest).Error; err != nil {
		return fmt.Errorf("failed to query %s: %w", res, err)
	}
	return nil
}

// First loads one row by id. Rows outside the session's scope surface as
// ErrNotFound, identical to rows that do not exist.
func (c *ScopedClient) First(res policy.Resource, dest any, id uuid.UUID) error {
	cond, args, err := scopeCond(res, c.readScopeOf(res), c.claims, false)
	if err != nil {
		return ErrNotFound
	}
	q := c.tx.Where(string(res)+".id = ?", id)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load %s: %w", res, err)
	}
	return nil
}

// Create inserts a tenant-scoped row. The owning tenant is stamped from the
// claims unless the session is owner-elevated and set one explicitly; a
// caller can never write into a foreign tenant by filling in the field.
func (c *ScopedClient) Create(res policy.Resource, row models.TenantScoped) error {
	if policy.MutabilityOf(res) == policy.ReadOnly {
		return c.violation(res, "%s is read-only reference data", res)
	}
	scope := c.writeScopeOf(res)
	if scope == policy.ScopeNone {
		return c.violation(res, "role %s may not create %s", c.claims.Role, res)
	}

	if scope != policy.ScopeCrossTenant || row.OwnerTenant() == uuid.Nil {
		row.SetOwnerTenant(c.claims.TenantID)
	}

	// Rows hanging off a patient require the patient itself to be writable
	// by this session.
	if owned, ok := row.(models.PatientOwned); ok {
		if err := c.requireWritablePatient(owned.OwnerPatient()); err != nil {
			return err
		}
	}

	// A TEAM user creating a patient record must assign it to itself;
	// anything else would fall outside its own write scope immediately.
	if p, ok := row.(*models.Patient); ok && scope == policy.ScopeAssigned {
		if p.AssignedTeamID == nil || *p.AssignedTeamID != c.claims.UserID {
			return c.violation(res, "TEAM may only create patients assigned to itself")
		}
	}

	if err := c.tx.Create(row).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", res, err)
	}
	return nil
}

// Updates applies a partial update to one row within write scope. Rows
// outside scope report ErrNotFound; immutable classes and published plan
// versions are rejected as policy violations before touching storage.
func (c *ScopedClient) Updates(res policy.Resource, id uuid.UUID, updates map[string]any) error {
	switch policy.MutabilityOf(res) {
	case policy.WriteOnce:
		return c.violation(res, "%s records are immutable once created", res)
	case policy.ReadOnly:
		return c.violation(res, "%s is read-only reference data", res)
	}

	for _, k := range []string{"id", "tenant_id", "content_hash"} {
		if _, ok := updates[k]; ok {
			return c.violation(res, "field %s may not be rewritten", k)
		}
	}

	scope := c.writeScopeOf(res)
	cond, args, err := scopeCond(res, scope, c.claims, true)
	if err != nil {
		return c.violation(res, "role %s may not update %s", c.claims.Role, res)
	}

	// The publish freeze depends on row state, so visibility resolves first:
	// a version outside the session's scope must read as absent whether it is
	// published or not, never as a distinguishable freeze rejection.
	if policy.MutabilityOf(res) == policy.FrozenOnPublish {
		if err := c.requireVisible(res, id, cond, args); err != nil {
			return err
		}
		published, err := c.isPublished(id)
		if err != nil {
			return err
		}
		if published {
			return c.violation(res, "plan version %s is published and can no longer change", id)
		}
	}

	q := c.tx.Model(prototypeFor(res)).Where(string(res)+".id = ?", id)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	result := q.Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", res, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one row within write scope. Patients and write-once
// classes refuse deletion outright.
func (c *ScopedClient) Delete(res policy.Resource, id uuid.UUID) error {
	switch policy.MutabilityOf(res) {
	case policy.WriteOnce:
		return c.violation(res, "%s records are immutable once created", res)
	case policy.ReadOnly:
		return c.violation(res, "%s is read-only reference data", res)
	case policy.NoDelete:
		return c.violation(res, "%s records are never deleted, only status-transitioned", res)
	}

	scope := c.writeScopeOf(res)
	cond, args, err := scopeCond(res, scope, c.claims, true)
	if err != nil {
		return c.violation(res, "role %s may not delete %s", c.claims.Role, res)
	}

	// Same ordering as Updates: scope visibility before the publish freeze,
	// so out-of-scope versions are absent rather than reported frozen.
	if policy.MutabilityOf(res) == policy.FrozenOnPublish {
		if err := c.requireVisible(res, id, cond, args); err != nil {
			return err
		}
		published, err := c.isPublished(id)
		if err != nil {
			return err
		}
		if published {
			return c.violation(res, "plan version %s is published and can no longer change", id)
		}
	}

	q := c.tx.Table(string(res)).Where(string(res)+".id = ?", id)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	result := q.Delete(prototypeFor(res))
	if result.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", res, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateFoodSnapshot encodes the payload canonically, hashes it and inserts
// the write-once snapshot row. This is the only way a snapshot comes into
// existence; the integrity auditor later recomputes the same hash over the
// stored payload.
func (c *ScopedClient) CreateFoodSnapshot(patientID uuid.UUID, payload snapshot.Payload) (*models.FoodSnapshot, error) {
	encoded, contentHash, err := snapshot.Encode(payload)
	if err != nil {
		return nil, err
	}
	snap := &models.FoodSnapshot{
		PatientID:   patientID,
		Payload:     encoded,
		ContentHash: contentHash,
	}
	if err := c.Create(policy.ResourceSnapshots, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// UpdatePatientStatus transitions a patient's lifecycle state. This is the
// only mutation patients support besides assignment and demographics.
func (c *ScopedClient) UpdatePatientStatus(patientID uuid.UUID, status models.PatientStatus) error {
	if !status.Valid() {
		return c.violation(policy.ResourcePatients, "unknown patient status %q", status)
	}
	return c.Updates(policy.ResourcePatients, patientID, map[string]any{"status": status})
}

// PublishPlanVersion freezes a plan version by writing its write-once
// publication record. From this moment updated_at <= published_at must hold
// for the version, forever.
func (c *ScopedClient) PublishPlanVersion(versionID uuid.UUID) (*models.PlanPublication, error) {
	if c.writeScopeOf(policy.ResourcePublications) == policy.ScopeNone {
		return nil, c.violation(policy.ResourcePublications, "role %s may not publish plans", c.claims.Role)
	}

	var version models.PlanVersion
	if err := c.First(policy.ResourcePlans, &version, versionID); err != nil {
		return nil, err
	}

	published, err := c.isPublished(versionID)
	if err != nil {
		return nil, err
	}
	if published {
		return nil, c.violation(policy.ResourcePublications, "plan version %s is already published", versionID)
	}

	pub := &models.PlanPublication{
		TenantID:      version.TenantID,
		PlanVersionID: version.ID,
		PublishedBy:   c.claims.UserID,
		PublishedAt:   time.Now().UTC(),
	}
	if err := c.Create(policy.ResourcePublications, pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// prototypeFor returns an empty row value for a resource class
func prototypeFor(res policy.Resource) any {
	switch res {
	case policy.ResourceUsers:
		return &models.User{}
	case policy.ResourcePatients:
		return &models.Patient{}
	case policy.ResourceMeals:
		return &models.Meal{}
	case policy.ResourceMealItems:
		return &models.MealItem{}
	case policy.ResourceSnapshots:
		return &models.FoodSnapshot{}
	case policy.ResourcePlans:
		return &models.PlanVersion{}
	case policy.ResourcePublications:
		return &models.PlanPublication{}
	case policy.ResourceProtocols:
		return &models.ProtocolInstance{}
	case policy.ResourceFoodItems:
		return &models.FoodItem{}
	default:
		return nil
	}
}

// requireWritablePatient checks the owning patient is inside the session's
// write scope. Out-of-scope patients read as absent.
func (c *ScopedClient) requireWritablePatient(patientID uuid.UUID) error {
	scope := c.writeScopeOf(policy.ResourcePatients)
	if scope == policy.ScopeNone && c.claims.Role == models.RolePatient {
		// PATIENT has no patient write scope but may log against its own
		// record; verify through self read scope instead.
		scope = policy.ScopeSelf
	}
	cond, args, err := scopeCond(policy.ResourcePatients, scope, c.claims, c.claims.Role != models.RolePatient)
	if err != nil {
		return ErrNotFound
	}
	var count int64
	q := c.tx.Table("patients").Where("patients.id = ?", patientID)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to resolve patient: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// requireVisible checks one row exists inside the given scope fragment.
// Rows outside it surface as ErrNotFound.
func (c *ScopedClient) requireVisible(res policy.Resource, id uuid.UUID, cond string, args []any) error {
	var count int64
	q := c.tx.Table(string(res)).Where(string(res)+".id = ?", id)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to resolve %s: %w", res, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// isPublished reports whether a publication row references the plan version
func (c *ScopedClient) isPublished(versionID uuid.UUID) (bool, error) {
	var count int64
	if err := c.tx.Table("plan_publications").
		Where("plan_version_id = ?", versionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check publication: %w", err)
	}
	return count > 0, nil
}
