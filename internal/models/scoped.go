package models

import "github.com/google/uuid"

// TenantScoped is implemented by every row type that carries a tenant_id.
// The scoped transaction context uses it to stamp and verify ownership on
// create, so a caller can never smuggle a foreign tenant id into a write.
type TenantScoped interface {
	OwnerTenant() uuid.UUID
	SetOwnerTenant(uuid.UUID)
}

// PatientOwned is implemented by rows that hang off a patient record. The
// scoped transaction context resolves write access for these through the
// owning patient.
type PatientOwned interface {
	OwnerPatient() uuid.UUID
}

// OwnerPatient returns the owning patient
func (m *Meal) OwnerPatient() uuid.UUID { return m.PatientID }

// OwnerPatient returns the owning patient
func (m *MealItem) OwnerPatient() uuid.UUID { return m.PatientID }

// OwnerPatient returns the owning patient
func (f *FoodSnapshot) OwnerPatient() uuid.UUID { return f.PatientID }

// OwnerPatient returns the owning patient
func (p *PlanVersion) OwnerPatient() uuid.UUID { return p.PatientID }

// OwnerPatient returns the owning patient
func (p *ProtocolInstance) OwnerPatient() uuid.UUID { return p.PatientID }
