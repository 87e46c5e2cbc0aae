package integrity

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/calc"
	"github.com/otcheredev/nutricore/internal/models"
)

// energyDivergenceLimit is the allowed relative gap between declared energy
// and energy recomputed from macros before a row is flagged.
const energyDivergenceLimit = 0.10

// DatasetRow is one nutrient reference row as seen by the sanity check
type DatasetRow struct {
	ID             uuid.UUID
	Name           string
	DatasetVersion string
	EnergyKcal     float64
	ProteinG       float64
	CarbsG         float64
	FatG           float64
	FiberG         float64
	SodiumMg       float64
}

// DatasetSource provides the nutrient reference rows to audit
type DatasetSource interface {
	FoodItems(ctx context.Context) ([]DatasetRow, error)
}

// DatasetCheck catches bad reference-data imports: negative nutrient values
// and declared energy that disagrees with the Atwater recomputation from
// macros.
type DatasetCheck struct {
	src DatasetSource
}

// NewDatasetCheck creates the dataset sanity check
func NewDatasetCheck(src DatasetSource) *DatasetCheck {
	return &DatasetCheck{src: src}
}

// Name implements Check
func (c *DatasetCheck) Name() string { return "dataset_sanity" }

// Run implements Check
func (c *DatasetCheck) Run(ctx context.Context) ([]models.IntegrityIssue, error) {
	rows, err := c.src.FoodItems(ctx)
	if err != nil {
		return nil, err
	}
	return EvaluateDataset(rows), nil
}

// EvaluateDataset applies the sanity rules to a fetched dataset
func EvaluateDataset(rows []DatasetRow) []models.IntegrityIssue {
	var issues []models.IntegrityIssue
	for _, row := range rows {
		id := row.ID
		fields := []struct {
			name  string
			value float64
		}{
			{"energy_kcal", row.EnergyKcal},
			{"protein_g", row.ProteinG},
			{"carbs_g", row.CarbsG},
			{"fat_g", row.FatG},
			{"fiber_g", row.FiberG},
			{"sodium_mg", row.SodiumMg},
		}
		for _, f := range fields {
			if f.value < 0 {
				issues = append(issues, models.IntegrityIssue{
					Severity:   models.SeverityHigh,
					EntityType: "food_item",
					EntityID:   &id,
					Details: map[string]any{
						"food":            row.Name,
						"dataset_version": row.DatasetVersion,
						"field":           f.name,
						"value":           f.value,
					},
				})
			}
		}

		if row.EnergyKcal > 0 {
			recomputed := calc.EnergyFromMacros(row.ProteinG, row.CarbsG, row.FatG)
			divergence := math.Abs(recomputed-row.EnergyKcal) / row.EnergyKcal
			if divergence > energyDivergenceLimit {
				issues = append(issues, models.IntegrityIssue{
					Severity:   models.SeverityMedium,
					EntityType: "food_item",
					EntityID:   &id,
					Details: map[string]any{
						"food":            row.Name,
						"dataset_version": row.DatasetVersion,
						"declared_kcal":   row.EnergyKcal,
						"recomputed_kcal": recomputed,
						"divergence":      divergence,
					},
				})
			}
		}
	}
	return issues
}
