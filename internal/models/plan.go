package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanVersion is one revision of a patient's nutrition plan. A version is
// freely editable until a PlanPublication row references it; from then on
// updated_at <= publication.published_at must hold forever.
type PlanVersion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PatientID uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Body      string    `gorm:"type:jsonb" json:"body"`
	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Publication *PlanPublication `gorm:"foreignKey:PlanVersionID" json:"publication,omitempty"`
}

// TableName overrides the table name
func (PlanVersion) TableName() string {
	return "plan_versions"
}

// BeforeCreate hook
func (p *PlanVersion) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (p *PlanVersion) OwnerTenant() uuid.UUID { return p.TenantID }

// SetOwnerTenant stamps the tenant on create
func (p *PlanVersion) SetOwnerTenant(id uuid.UUID) { p.TenantID = id }

// PlanPublication marks a PlanVersion as published to the patient. 1:1 with
// its version and write-once.
type PlanPublication struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PlanVersionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"plan_version_id"`
	PublishedBy   uuid.UUID `gorm:"type:uuid;not null" json:"published_by"`
	PublishedAt   time.Time `gorm:"not null;index" json:"published_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name
func (PlanPublication) TableName() string {
	return "plan_publications"
}

// BeforeCreate hook
func (p *PlanPublication) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (p *PlanPublication) OwnerTenant() uuid.UUID { return p.TenantID }

// SetOwnerTenant stamps the tenant on create
func (p *PlanPublication) SetOwnerTenant(id uuid.UUID) { p.TenantID = id }
