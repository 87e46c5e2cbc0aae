// Package integrity implements the auditor: independent, read-only checks
// that re-verify the invariants the enforcement layer is supposed to
// guarantee. The auditor never repairs anything; it only reports. Repair is
// an explicit operator action, never automatic.
package integrity

import (
	"context"

	"github.com/otcheredev/nutricore/internal/models"
)

// Check is one independent integrity verification. Checks share no mutable
// state and may run concurrently.
type Check interface {
	Name() string
	Run(ctx context.Context) ([]models.IntegrityIssue, error)
}

// MaxSeverity returns the worst severity among the issues, or the empty
// severity when there are none.
func MaxSeverity(issues []models.IntegrityIssue) models.Severity {
	var max models.Severity
	for _, issue := range issues {
		if issue.Severity.Rank() > max.Rank() {
			max = issue.Severity
		}
	}
	return max
}

// StatusFor derives the run status from the worst severity found. Check
// errors override everything: a run that could not complete is failed.
func StatusFor(max models.Severity, checkErrored bool) string {
	if checkErrored {
		return models.RunStatusFailed
	}
	switch max {
	case models.SeverityHigh, models.SeverityCritical:
		return models.RunStatusFailing
	case models.SeverityLow, models.SeverityMedium:
		return models.RunStatusWarning
	default:
		return models.RunStatusPassed
	}
}
