package integrity

import (
	"context"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/snapshot"
)

// MealLineRow is one meal line joined with its snapshot, if any
type MealLineRow struct {
	ItemID      uuid.UUID
	SnapshotID  *uuid.UUID
	Payload     string
	ContentHash string
}

// SnapshotSource provides meal lines with their snapshots
type SnapshotSource interface {
	MealLines(ctx context.Context) ([]MealLineRow, error)
}

// SnapshotCheck verifies every meal line has its immutable snapshot and
// that recomputing the content hash over the stored payload still matches.
// A missing snapshot is data loss; a mismatched hash is tampering that got
// past the write-rejection policy, e.g. through a lower-level access path.
// Both are CRITICAL.
type SnapshotCheck struct {
	src SnapshotSource
}

// NewSnapshotCheck creates the snapshot integrity check
func NewSnapshotCheck(src SnapshotSource) *SnapshotCheck {
	return &SnapshotCheck{src: src}
}

// Name implements Check
func (c *SnapshotCheck) Name() string { return "snapshot_integrity" }

// Run implements Check
func (c *SnapshotCheck) Run(ctx context.Context) ([]models.IntegrityIssue, error) {
	rows, err := c.src.MealLines(ctx)
	if err != nil {
		return nil, err
	}
	return EvaluateSnapshots(rows), nil
}

// EvaluateSnapshots applies the snapshot rules to fetched meal lines
func EvaluateSnapshots(rows []MealLineRow) []models.IntegrityIssue {
	var issues []models.IntegrityIssue
	for _, row := range rows {
		itemID := row.ItemID
		if row.SnapshotID == nil {
			issues = append(issues, models.IntegrityIssue{
				Severity:   models.SeverityCritical,
				EntityType: "meal_item",
				EntityID:   &itemID,
				Details: map[string]any{
					"reason": "meal line has no food snapshot",
				},
			})
			continue
		}

		rehash, err := snapshot.HashRaw([]byte(row.Payload))
		if err != nil {
			issues = append(issues, models.IntegrityIssue{
				Severity:   models.SeverityCritical,
				EntityType: "food_snapshot",
				EntityID:   row.SnapshotID,
				Details: map[string]any{
					"reason": "stored payload is not decodable",
					"error":  err.Error(),
				},
			})
			continue
		}
		if rehash != row.ContentHash {
			issues = append(issues, models.IntegrityIssue{
				Severity:   models.SeverityCritical,
				EntityType: "food_snapshot",
				EntityID:   row.SnapshotID,
				Details: map[string]any{
					"reason":          "content hash mismatch",
					"stored_hash":     row.ContentHash,
					"recomputed_hash": rehash,
				},
			})
		}
	}
	return issues
}
