package integrity

import (
	"context"
	"math"

	"github.com/otcheredev/nutricore/internal/calc"
	"github.com/otcheredev/nutricore/internal/models"
)

// CanaryCheck replays fixed, hand-verified energy-expenditure vectors
// through the shared calculation code. Any drift beyond tolerance is
// CRITICAL: it means calculation results across the whole system silently
// changed, independent of any stored data.
type CanaryCheck struct{}

// NewCanaryCheck creates the canary calculation check
func NewCanaryCheck() *CanaryCheck {
	return &CanaryCheck{}
}

// Name implements Check
func (c *CanaryCheck) Name() string { return "canary_calculation" }

// Run implements Check
func (c *CanaryCheck) Run(ctx context.Context) ([]models.IntegrityIssue, error) {
	var issues []models.IntegrityIssue
	for _, v := range calc.CanaryVectors() {
		var got float64
		var err error
		if v.Activity > 0 {
			got, err = calc.TDEE(v.Input, v.Activity)
		} else {
			got, err = calc.BMR(v.Input)
		}
		if err != nil {
			issues = append(issues, models.IntegrityIssue{
				Severity:   models.SeverityCritical,
				EntityType: "calculation",
				Details: map[string]any{
					"vector": v.Name,
					"error":  err.Error(),
				},
			})
			continue
		}
		if drift := math.Abs(got - v.Expected); drift > v.Tolerance {
			issues = append(issues, models.IntegrityIssue{
				Severity:   models.SeverityCritical,
				EntityType: "calculation",
				Details: map[string]any{
					"vector":    v.Name,
					"expected":  v.Expected,
					"actual":    got,
					"drift":     drift,
					"tolerance": v.Tolerance,
				},
			})
		}
	}
	return issues, nil
}
