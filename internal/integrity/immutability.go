package integrity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
)

// PublishedVersionRow is one published plan version with both timestamps
type PublishedVersionRow struct {
	VersionID   uuid.UUID
	UpdatedAt   time.Time
	PublishedAt time.Time
}

// PublicationSource provides every plan version that has a publication
type PublicationSource interface {
	PublishedVersions(ctx context.Context) ([]PublishedVersionRow, error)
}

// ImmutabilityCheck asserts updated_at <= published_at for every published
// plan version. A violation is CRITICAL: a final artifact already presented
// to a patient was altered afterwards.
type ImmutabilityCheck struct {
	src PublicationSource
}

// NewImmutabilityCheck creates the publication immutability check
func NewImmutabilityCheck(src PublicationSource) *ImmutabilityCheck {
	return &ImmutabilityCheck{src: src}
}

// Name implements Check
func (c *ImmutabilityCheck) Name() string { return "publication_immutability" }

// Run implements Check
func (c *ImmutabilityCheck) Run(ctx context.Context) ([]models.IntegrityIssue, error) {
	rows, err := c.src.PublishedVersions(ctx)
	if err != nil {
		return nil, err
	}
	return EvaluatePublications(rows), nil
}

// EvaluatePublications applies the immutability rule to fetched versions
func EvaluatePublications(rows []PublishedVersionRow) []models.IntegrityIssue {
	var issues []models.IntegrityIssue
	for _, row := range rows {
		if row.UpdatedAt.After(row.PublishedAt) {
			versionID := row.VersionID
			issues = append(issues, models.IntegrityIssue{
				Severity:   models.SeverityCritical,
				EntityType: "plan_version",
				EntityID:   &versionID,
				Details: map[string]any{
					"reason":       "plan version changed after publication",
					"updated_at":   row.UpdatedAt,
					"published_at": row.PublishedAt,
				},
			})
		}
	}
	return issues
}
