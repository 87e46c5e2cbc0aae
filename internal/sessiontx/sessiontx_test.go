package sessiontx

import (
	"context"
	"testing"

	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/snapshot"
	"github.com/stretchr/testify/assert"
)

// The guards below fire before any transaction opens, so they are testable
// without a database.

func TestOwnerModeRequiresOwnerRole(t *testing.T) {
	for _, role := range []models.Role{models.RoleTenantAdmin, models.RoleTeam, models.RolePatient} {
		err := withSessionDB(context.Background(), nil, testClaims(role), &Options{OwnerMode: true}, func(*ScopedClient) error {
			t.Fatal("unit of work must not run")
			return nil
		})
		assert.ErrorIs(t, err, ErrPolicyViolation, "role %s", role)
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	err := withSessionDB(context.Background(), nil, testClaims(models.Role("SUPERUSER")), nil, func(*ScopedClient) error {
		t.Fatal("unit of work must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestSnapshotPayloadHashMatchesAuditRecomputation(t *testing.T) {
	// The write path and the audit path share one hash function; a payload
	// encoded at create time must verify against its own stored form.
	payload, contentHash, err := snapshot.Encode(snapshot.Payload{
		FoodName:   "Lentils",
		QuantityG:  150,
		EnergyKcal: 174,
		ProteinG:   13.5,
		CarbsG:     30,
		FatG:       0.6,
	})
	assert.NoError(t, err)

	rehash, err := snapshot.HashRaw([]byte(payload))
	assert.NoError(t, err)
	assert.Equal(t, contentHash, rehash)
}
