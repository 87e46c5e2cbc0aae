package database

import (
	"strings"
	"testing"

	"github.com/otcheredev/nutricore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every tenant-stamped row type must have its table behind a row security
// policy; a new model without one would silently fall back to
// application-side filtering alone.
func TestRowSecurityCoversTenantScopedTables(t *testing.T) {
	scoped := []interface {
		models.TenantScoped
		TableName() string
	}{
		&models.User{},
		&models.Patient{},
		&models.ProtocolInstance{},
		&models.Meal{},
		&models.MealItem{},
		&models.FoodSnapshot{},
		&models.PlanVersion{},
		&models.PlanPublication{},
	}

	secured := make(map[string]bool, len(tenantTables))
	for _, table := range tenantTables {
		secured[table] = true
	}

	for _, model := range scoped {
		assert.True(t, secured[model.TableName()], "table %s has no row security policy", model.TableName())
	}
	assert.Len(t, tenantTables, len(scoped))
}

func TestRowSecurityStatements(t *testing.T) {
	stmts := rowSecurityStatements("patients")
	require.Len(t, stmts, 4)

	assert.Equal(t, "ALTER TABLE patients ENABLE ROW LEVEL SECURITY", stmts[0])
	assert.Equal(t, "ALTER TABLE patients FORCE ROW LEVEL SECURITY", stmts[1])
	assert.Equal(t, "DROP POLICY IF EXISTS tenant_isolation ON patients", stmts[2])

	policy := stmts[3]
	// The policy must consume the transaction-local binding keys, let
	// owner-elevated sessions through and apply to writes as well as reads.
	assert.Contains(t, policy, "current_setting('app.tenant_id', true)")
	assert.Contains(t, policy, "current_setting('app.owner_mode', true)")
	assert.Contains(t, policy, "tenant_id::text = current_setting('app.tenant_id', true)")
	assert.Contains(t, policy, "WITH CHECK")
	assert.True(t, strings.HasPrefix(policy, "CREATE POLICY tenant_isolation ON patients"))
}
