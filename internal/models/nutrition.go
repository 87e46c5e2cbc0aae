package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FoodItem is one row of the nutrient reference dataset. Values are per
// 100g of the food. Rows are replaced wholesale on dataset releases, which
// is exactly why meal lines snapshot them instead of referencing them.
type FoodItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null;index" json:"name"`
	EnergyKcal     float64   `gorm:"not null" json:"energy_kcal"`
	ProteinG       float64   `gorm:"not null" json:"protein_g"`
	CarbsG         float64   `gorm:"not null" json:"carbs_g"`
	FatG           float64   `gorm:"not null" json:"fat_g"`
	FiberG         float64   `json:"fiber_g"`
	SodiumMg       float64   `json:"sodium_mg"`
	DatasetVersion string    `gorm:"type:varchar(50);not null;index" json:"dataset_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (FoodItem) TableName() string {
	return "food_items"
}

// BeforeCreate hook
func (f *FoodItem) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Meal is one logged intake (breakfast, lunch, ...) for a patient
type Meal struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PatientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"patient_id"`
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`
	AteAt     time.Time  `gorm:"not null;index" json:"ate_at"`
	Items     []MealItem `gorm:"foreignKey:MealID" json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Meal) TableName() string {
	return "meals"
}

// BeforeCreate hook
func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (m *Meal) OwnerTenant() uuid.UUID { return m.TenantID }

// SetOwnerTenant stamps the tenant on create
func (m *Meal) SetOwnerTenant(id uuid.UUID) { m.TenantID = id }

// MealItem is one food line within a meal. SnapshotID points at the
// immutable copy of the nutrient data taken when the line was logged; the
// integrity auditor treats a missing snapshot as data loss.
type MealItem struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PatientID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"patient_id"`
	MealID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"meal_id"`
	FoodItemID uuid.UUID  `gorm:"type:uuid;not null" json:"food_item_id"`
	SnapshotID *uuid.UUID `gorm:"type:uuid;index" json:"snapshot_id,omitempty"`
	QuantityG  float64    `gorm:"not null" json:"quantity_g"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (MealItem) TableName() string {
	return "meal_items"
}

// BeforeCreate hook
func (m *MealItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (m *MealItem) OwnerTenant() uuid.UUID { return m.TenantID }

// SetOwnerTenant stamps the tenant on create
func (m *MealItem) SetOwnerTenant(id uuid.UUID) { m.TenantID = id }

// FoodSnapshot is the content-addressed, write-once copy of nutrient data as
// it existed when a meal line was logged. Payload is the canonical JSON of a
// snapshot.Payload; ContentHash is its sha256 hex digest, computed by the
// enforcement layer at create time. Updates and deletes are rejected
// unconditionally by the scoped client.
type FoodSnapshot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Payload     string    `gorm:"type:jsonb;not null" json:"payload"`
	ContentHash string    `gorm:"type:char(64);not null;index" json:"content_hash"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (FoodSnapshot) TableName() string {
	return "food_snapshots"
}

// BeforeCreate hook
func (f *FoodSnapshot) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// OwnerTenant returns the tenant the row belongs to
func (f *FoodSnapshot) OwnerTenant() uuid.UUID { return f.TenantID }

// SetOwnerTenant stamps the tenant on create
func (f *FoodSnapshot) SetOwnerTenant(id uuid.UUID) { f.TenantID = id }
