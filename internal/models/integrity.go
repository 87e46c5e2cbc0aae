package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Severity classifies an integrity issue. Severity is fixed by the check
// that produced the issue and is never downgraded afterwards.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordering weight of the severity (higher is worse).
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Run statuses. A run that completed derives its status from the maximum
// severity found; a run whose checks errored is recorded as failed.
const (
	RunStatusPassed  = "passed"
	RunStatusWarning = "warning"
	RunStatusFailing = "failing"
	RunStatusFailed  = "failed"
)

// IntegrityCheckRun is one execution of the full auditor. Rows are inserted
// once, after the run finishes, and never updated.
type IntegrityCheckRun struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StartedAt   time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt  time.Time `gorm:"not null" json:"finished_at"`
	Status      string    `gorm:"type:varchar(20);not null;index" json:"status"`
	MaxSeverity Severity  `gorm:"type:varchar(10)" json:"max_severity,omitempty"`
	IssueCount  int       `gorm:"not null;default:0" json:"issue_count"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the table name
func (IntegrityCheckRun) TableName() string {
	return "integrity_check_runs"
}

// BeforeCreate hook
func (r *IntegrityCheckRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IntegrityIssue is one finding discovered by a check. Issues are evidence
// the enforcement layer already failed somewhere; they are recorded verbatim
// and never deduplicated or suppressed.
type IntegrityIssue struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RunID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"run_id"`
	CheckName  string         `gorm:"type:varchar(100);not null;index" json:"check_name"`
	Severity   Severity       `gorm:"type:varchar(10);not null;index" json:"severity"`
	EntityType string         `gorm:"type:varchar(100);not null" json:"entity_type"`
	EntityID   *uuid.UUID     `gorm:"type:uuid" json:"entity_id,omitempty"`
	Details    map[string]any `gorm:"serializer:json;type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (IntegrityIssue) TableName() string {
	return "integrity_issues"
}

// BeforeCreate hook
func (i *IntegrityIssue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
