package integrity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanaryCheckCleanOnCurrentFormulas(t *testing.T) {
	issues, err := NewCanaryCheck().Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues, "hand-verified vectors must reproduce exactly")
}

func TestDatasetCheckFlagsNegativeValues(t *testing.T) {
	rows := []DatasetRow{
		{ID: uuid.New(), Name: "Broken import", EnergyKcal: 120, ProteinG: -3, CarbsG: 20, FatG: 2},
	}
	issues := EvaluateDataset(rows)
	require.NotEmpty(t, issues)
	assert.Equal(t, models.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "food_item", issues[0].EntityType)
	assert.Equal(t, "protein_g", issues[0].Details["field"])
}

func TestDatasetCheckFlagsEnergyDivergence(t *testing.T) {
	// 10g protein + 10g carbs + 10g fat = 170 kcal by Atwater; a declared
	// 300 kcal diverges far beyond 10%.
	id := uuid.New()
	issues := EvaluateDataset([]DatasetRow{
		{ID: id, Name: "Mislabeled bar", EnergyKcal: 300, ProteinG: 10, CarbsG: 10, FatG: 10},
	})
	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)
	assert.Equal(t, &id, issues[0].EntityID)
	assert.Equal(t, 170.0, issues[0].Details["recomputed_kcal"])
}

func TestDatasetCheckAcceptsConsistentRows(t *testing.T) {
	issues := EvaluateDataset([]DatasetRow{
		{ID: uuid.New(), Name: "Chicken breast", EnergyKcal: 165, ProteinG: 31, CarbsG: 0, FatG: 3.6},
		{ID: uuid.New(), Name: "White rice", EnergyKcal: 130, ProteinG: 2.7, CarbsG: 28.2, FatG: 0.3},
	})
	assert.Empty(t, issues)
}

func TestSnapshotCheckFlagsMissingSnapshot(t *testing.T) {
	itemID := uuid.New()
	issues := EvaluateSnapshots([]MealLineRow{{ItemID: itemID, SnapshotID: nil}})
	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	assert.Equal(t, "meal_item", issues[0].EntityType)
	assert.Equal(t, &itemID, issues[0].EntityID)
}

func TestSnapshotCheckFlagsHashMismatch(t *testing.T) {
	payload, hash, err := snapshot.Encode(snapshot.Payload{FoodName: "Oats", EnergyKcal: 389})
	require.NoError(t, err)

	snapID := uuid.New()
	good := MealLineRow{ItemID: uuid.New(), SnapshotID: &snapID, Payload: payload, ContentHash: hash}
	assert.Empty(t, EvaluateSnapshots([]MealLineRow{good}))

	tamperedID := uuid.New()
	tampered := MealLineRow{
		ItemID:      uuid.New(),
		SnapshotID:  &tamperedID,
		Payload:     payload,
		ContentHash: "0000000000000000000000000000000000000000000000000000000000000000",
	}
	issues := EvaluateSnapshots([]MealLineRow{tampered})
	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	assert.Equal(t, "food_snapshot", issues[0].EntityType)
	assert.Equal(t, "content hash mismatch", issues[0].Details["reason"])
}

func TestImmutabilityCheckFlagsPostPublicationEdit(t *testing.T) {
	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	versionID := uuid.New()

	issues := EvaluatePublications([]PublishedVersionRow{
		{VersionID: uuid.New(), UpdatedAt: published.Add(-time.Hour), PublishedAt: published},
		{VersionID: versionID, UpdatedAt: published.Add(time.Minute), PublishedAt: published},
	})
	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	assert.Equal(t, &versionID, issues[0].EntityID)
}

func TestCrossTenantCheckNamesBothTenants(t *testing.T) {
	// A patient under T1 force-linked to a user under T2 must produce
	// exactly one CRITICAL issue naming both tenant ids.
	t1 := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	t2 := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	patientID := uuid.New()

	issues := EvaluateRelations([]RelationRow{{
		Relation:     "patients.user_id -> users.id",
		EntityType:   "patient",
		EntityID:     patientID,
		EntityTenant: t1,
		RefType:      "user",
		RefID:        uuid.New(),
		RefTenant:    t2,
	}})

	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	colliding, ok := issues[0].Details["colliding_tenants"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{t1.String(), t2.String()}, colliding)
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, models.Severity(""), MaxSeverity(nil))
	assert.Equal(t, models.SeverityCritical, MaxSeverity([]models.IntegrityIssue{
		{Severity: models.SeverityLow},
		{Severity: models.SeverityCritical},
		{Severity: models.SeverityMedium},
	}))
	assert.Equal(t, models.SeverityMedium, MaxSeverity([]models.IntegrityIssue{
		{Severity: models.SeverityLow},
		{Severity: models.SeverityMedium},
	}))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, models.RunStatusPassed, StatusFor("", false))
	assert.Equal(t, models.RunStatusWarning, StatusFor(models.SeverityLow, false))
	assert.Equal(t, models.RunStatusWarning, StatusFor(models.SeverityMedium, false))
	assert.Equal(t, models.RunStatusFailing, StatusFor(models.SeverityHigh, false))
	assert.Equal(t, models.RunStatusFailing, StatusFor(models.SeverityCritical, false))
	assert.Equal(t, models.RunStatusFailed, StatusFor(models.SeverityCritical, true))
	assert.Equal(t, models.RunStatusFailed, StatusFor("", true))
}
