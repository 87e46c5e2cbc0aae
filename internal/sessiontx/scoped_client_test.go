package sessiontx

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test its own in-memory store with just the plan
// tables migrated.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PlanVersion{}, &models.PlanPublication{}))
	return db
}

func seedPlanVersion(t *testing.T, db *gorm.DB, tenantID uuid.UUID, published bool) *models.PlanVersion {
	t.Helper()
	version := &models.PlanVersion{
		TenantID:  tenantID,
		PatientID: uuid.New(),
		Title:     "Initial plan",
		Body:      `{"meals":3}`,
		Version:   1,
	}
	require.NoError(t, db.Create(version).Error)
	if published {
		require.NoError(t, db.Create(&models.PlanPublication{
			TenantID:      tenantID,
			PlanVersionID: version.ID,
			PublishedBy:   uuid.New(),
			PublishedAt:   time.Now().UTC(),
		}).Error)
	}
	return version
}

func adminClient(db *gorm.DB, tenantID uuid.UUID) *ScopedClient {
	return &ScopedClient{
		tx: db,
		claims: models.SessionClaims{
			UserID:   uuid.New(),
			TenantID: tenantID,
			Role:     models.RoleTenantAdmin,
		},
	}
}

// A foreign tenant's plan version must read as absent regardless of its
// publication state; a published one answering with the freeze rejection
// would reveal it exists.
func TestForeignPlanVersionReadsAsAbsent(t *testing.T) {
	db := openTestDB(t)
	otherTenant := uuid.New()
	unpublished := seedPlanVersion(t, db, otherTenant, false)
	published := seedPlanVersion(t, db, otherTenant, true)

	c := adminClient(db, uuid.New())

	for _, version := range []*models.PlanVersion{unpublished, published} {
		err := c.Updates(policy.ResourcePlans, version.ID, map[string]any{"title": "probing"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrPolicyViolation)

		err = c.Delete(policy.ResourcePlans, version.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrPolicyViolation)
	}

	var got models.PlanVersion
	require.NoError(t, db.First(&got, "id = ?", unpublished.ID).Error)
	assert.Equal(t, "Initial plan", got.Title)
}

func TestPublishedPlanVersionFrozenInOwnTenant(t *testing.T) {
	db := openTestDB(t)
	tenantID := uuid.New()
	version := seedPlanVersion(t, db, tenantID, true)

	c := adminClient(db, tenantID)

	err := c.Updates(policy.ResourcePlans, version.ID, map[string]any{"title": "edited"})
	assert.ErrorIs(t, err, ErrPolicyViolation)

	err = c.Delete(policy.ResourcePlans, version.ID)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestUnpublishedPlanVersionEditable(t *testing.T) {
	db := openTestDB(t)
	tenantID := uuid.New()
	version := seedPlanVersion(t, db, tenantID, false)

	c := adminClient(db, tenantID)
	require.NoError(t, c.Updates(policy.ResourcePlans, version.ID, map[string]any{"title": "edited"}))

	var got models.PlanVersion
	require.NoError(t, db.First(&got, "id = ?", version.ID).Error)
	assert.Equal(t, "edited", got.Title)
}

// Pre-publish edits must move updated_at, otherwise the immutability check
// has nothing to compare against published_at.
func TestUpdatesRefreshUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	tenantID := uuid.New()
	version := seedPlanVersion(t, db, tenantID, false)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(&models.PlanVersion{}).
		Where("id = ?", version.ID).
		UpdateColumn("updated_at", past).Error)

	c := adminClient(db, tenantID)
	require.NoError(t, c.Updates(policy.ResourcePlans, version.ID, map[string]any{"title": "edited"}))

	var got models.PlanVersion
	require.NoError(t, db.First(&got, "id = ?", version.ID).Error)
	assert.True(t, got.UpdatedAt.After(past), "updated_at %s not refreshed past %s", got.UpdatedAt, past)
}

// Snapshots reject update and delete for every role before any statement is
// issued; the nil transaction would panic if the guard let one through.
func TestSnapshotMutationRejectedForEveryRole(t *testing.T) {
	roles := []models.Role{models.RoleOwner, models.RoleTenantAdmin, models.RoleTeam, models.RolePatient}
	for _, role := range roles {
		c := &ScopedClient{claims: testClaims(role)}

		err := c.Updates(policy.ResourceSnapshots, uuid.New(), map[string]any{"source": "X"})
		assert.ErrorIs(t, err, ErrPolicyViolation, "update as %s", role)

		err = c.Delete(policy.ResourceSnapshots, uuid.New())
		assert.ErrorIs(t, err, ErrPolicyViolation, "delete as %s", role)
	}
}
