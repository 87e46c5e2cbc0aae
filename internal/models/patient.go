package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatientStatus is the lifecycle state of a patient record. Patients are
// never deleted, only status-transitioned.
type PatientStatus string

const (
	PatientActive   PatientStatus = "active"
	PatientInactive PatientStatus = "inactive"
	PatientArchived PatientStatus = "archived"
)

// Valid reports whether the status is a known lifecycle state
func (s PatientStatus) Valid() bool {
	switch s {
	case PatientActive, PatientInactive, PatientArchived:
		return true
	}
	return false
}

// Patient belongs to exactly one tenant. AssignedTeamID, when set, restricts
// which TEAM-role users may read and write the record. UserID links the
// patient to its own login for PATIENT-role self access.
type Patient struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID         *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	AssignedTeamID *uuid.UUID    `gorm:"type:uuid;index" json:"assigned_team_id,omitempty"`
	FullName       string        `gorm:"type:varchar(255);not null" json:"full_name"`
	Status         PatientStatus `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName overrides the table name
func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate hook
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (p *Patient) OwnerTenant() uuid.UUID { return p.TenantID }

// SetOwnerTenant stamps the tenant on create
func (p *Patient) SetOwnerTenant(id uuid.UUID) { p.TenantID = id }

// ProtocolInstance is a protocol (elimination diet, reintroduction schedule)
// running for one patient.
type ProtocolInstance struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PatientID uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Status    string    `gorm:"type:varchar(20);not null;default:running" json:"status"`
	StartedAt time.Time `json:"started_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (ProtocolInstance) TableName() string {
	return "protocol_instances"
}

// BeforeCreate hook
func (p *ProtocolInstance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (p *ProtocolInstance) OwnerTenant() uuid.UUID { return p.TenantID }

// SetOwnerTenant stamps the tenant on create
func (p *ProtocolInstance) SetOwnerTenant(id uuid.UUID) { p.TenantID = id }
