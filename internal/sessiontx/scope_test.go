package sessiontx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims(role models.Role) models.SessionClaims {
	return models.SessionClaims{
		UserID:   uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		TenantID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Role:     role,
	}
}

func TestTenantScopeFiltersByTenantOnly(t *testing.T) {
	claims := testClaims(models.RoleTenantAdmin)
	cond, args, err := scopeCond(policy.ResourcePatients, policy.ScopeTenant, claims, false)
	require.NoError(t, err)
	assert.Equal(t, "patients.tenant_id = ?", cond)
	assert.Equal(t, []any{claims.TenantID}, args)
}

func TestCrossTenantScopeIsUnfiltered(t *testing.T) {
	cond, args, err := scopeCond(policy.ResourcePatients, policy.ScopeCrossTenant, testClaims(models.RoleOwner), false)
	require.NoError(t, err)
	assert.Empty(t, cond)
	assert.Empty(t, args)
}

func TestNoneScopeIsPolicyViolation(t *testing.T) {
	_, _, err := scopeCond(policy.ResourceUsers, policy.ScopeNone, testClaims(models.RolePatient), false)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestAssignedReadIncludesUnassignedPatients(t *testing.T) {
	claims := testClaims(models.RoleTeam)
	cond, args, err := scopeCond(policy.ResourcePatients, policy.ScopeAssigned, claims, false)
	require.NoError(t, err)
	assert.Contains(t, cond, "patients.assigned_team_id = ? OR patients.assigned_team_id IS NULL")
	assert.Equal(t, []any{claims.TenantID, claims.UserID}, args)
}

func TestAssignedWriteRequiresExactAssignment(t *testing.T) {
	claims := testClaims(models.RoleTeam)
	cond, _, err := scopeCond(policy.ResourcePatients, policy.ScopeAssigned, claims, true)
	require.NoError(t, err)
	assert.Contains(t, cond, "patients.assigned_team_id = ?")
	assert.NotContains(t, cond, "IS NULL")
}

func TestSelfScopeNarrowsThroughPatientLink(t *testing.T) {
	claims := testClaims(models.RolePatient)

	cond, args, err := scopeCond(policy.ResourcePatients, policy.ScopeSelf, claims, false)
	require.NoError(t, err)
	assert.Contains(t, cond, "patients.user_id = ?")
	assert.Equal(t, []any{claims.TenantID, claims.UserID}, args)

	cond, args, err = scopeCond(policy.ResourceMeals, policy.ScopeSelf, claims, false)
	require.NoError(t, err)
	assert.Contains(t, cond, "meals.tenant_id = ?")
	assert.Contains(t, cond, "meals.patient_id IN (")
	assert.Contains(t, cond, "patients.user_id = ?")
	assert.Len(t, args, 3)
}

func TestPublicationScopeNarrowsThroughPlanVersion(t *testing.T) {
	claims := testClaims(models.RolePatient)
	cond, args, err := scopeCond(policy.ResourcePublications, policy.ScopeSelf, claims, false)
	require.NoError(t, err)
	assert.Contains(t, cond, "plan_publications.plan_version_id IN (")
	assert.Contains(t, cond, "plan_versions pv")
	assert.Contains(t, cond, "patients.user_id = ?")
	assert.Len(t, args, 4)
}

func TestFoodItemsAreGlobalReferenceData(t *testing.T) {
	cond, args, err := scopeCond(policy.ResourceFoodItems, policy.ScopeTenant, testClaims(models.RolePatient), false)
	require.NoError(t, err)
	assert.Empty(t, cond)
	assert.Empty(t, args)
}

func TestUsersSelfScope(t *testing.T) {
	claims := testClaims(models.RoleTeam)
	cond, args, err := scopeCond(policy.ResourceUsers, policy.ScopeSelf, claims, false)
	require.NoError(t, err)
	assert.Equal(t, "users.id = ?", cond)
	assert.Equal(t, []any{claims.UserID}, args)

	// assignment has no meaning for users
	_, _, err = scopeCond(policy.ResourceUsers, policy.ScopeAssigned, claims, false)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}
