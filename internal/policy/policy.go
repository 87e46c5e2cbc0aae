// Package policy holds the static access matrix: role × resource class →
// scope. It is the single source of truth for row filtering; the scoped
// transaction context consumes it at one chokepoint instead of scattering
// role checks across endpoints. Adding a role or resource means adding a
// matrix entry, nothing else.
package policy

import "github.com/otcheredev/nutricore/internal/models"

// Resource identifies a class of rows the matrix scopes
type Resource string

const (
	ResourceUsers        Resource = "users"
	ResourcePatients     Resource = "patients"
	ResourceMeals        Resource = "meals"
	ResourceMealItems    Resource = "meal_items"
	ResourceSnapshots    Resource = "food_snapshots"
	ResourcePlans        Resource = "plan_versions"
	ResourcePublications Resource = "plan_publications"
	ResourceProtocols    Resource = "protocol_instances"
	ResourceFoodItems    Resource = "food_items"
)

// Scope is how far a role may reach into a resource class
type Scope int

const (
	// ScopeNone denies access entirely
	ScopeNone Scope = iota
	// ScopeSelf limits to the caller's own patient record and what it owns
	ScopeSelf
	// ScopeAssigned limits to patients assigned to the calling TEAM user
	ScopeAssigned
	// ScopeTenant limits to the caller's tenant
	ScopeTenant
	// ScopeCrossTenant reaches all tenants; only ever granted through an
	// explicit owner-mode elevation, never by the matrix itself
	ScopeCrossTenant
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeAssigned:
		return "assigned"
	case ScopeTenant:
		return "tenant"
	case ScopeCrossTenant:
		return "cross-tenant"
	default:
		return "none"
	}
}

// Mutability is the write rule for a resource class, enforced by the same
// chokepoint that does tenant scoping.
type Mutability int

const (
	// Mutable rows may be updated and deleted within scope
	Mutable Mutability = iota
	// WriteOnce rows are created once and never updated or deleted
	WriteOnce
	// FrozenOnPublish rows become immutable once a publication references them
	FrozenOnPublish
	// NoDelete rows may be updated but never deleted
	NoDelete
	// ReadOnly rows are reference data, not writable through a session
	ReadOnly
)

// readMatrix is the scope each role gets for reads. OWNER appears with
// tenant scope on purpose: cross-tenant reach requires the explicit
// owner-mode option at the call site, never the role alone.
var readMatrix = map[models.Role]map[Resource]Scope{
	models.RoleOwner: {
		ResourceUsers:        ScopeTenant,
		ResourcePatients:     ScopeTenant,
		ResourceMeals:        ScopeTenant,
		ResourceMealItems:    ScopeTenant,
		ResourceSnapshots:    ScopeTenant,
		ResourcePlans:        ScopeTenant,
		ResourcePublications: ScopeTenant,
		ResourceProtocols:    ScopeTenant,
		ResourceFoodItems:    ScopeTenant,
	},
	models.RoleTenantAdmin: {
		ResourceUsers:        ScopeTenant,
		ResourcePatients:     ScopeTenant,
		ResourceMeals:        ScopeTenant,
		ResourceMealItems:    ScopeTenant,
		ResourceSnapshots:    ScopeTenant,
		ResourcePlans:        ScopeTenant,
		ResourcePublications: ScopeTenant,
		ResourceProtocols:    ScopeTenant,
		ResourceFoodItems:    ScopeTenant,
	},
	models.RoleTeam: {
		ResourceUsers:        ScopeTenant,
		ResourcePatients:     ScopeAssigned,
		ResourceMeals:        ScopeAssigned,
		ResourceMealItems:    ScopeAssigned,
		ResourceSnapshots:    ScopeAssigned,
		ResourcePlans:        ScopeAssigned,
		ResourcePublications: ScopeAssigned,
		ResourceProtocols:    ScopeAssigned,
		ResourceFoodItems:    ScopeTenant,
	},
	models.RolePatient: {
		ResourceUsers:        ScopeNone,
		ResourcePatients:     ScopeSelf,
		ResourceMeals:        ScopeSelf,
		ResourceMealItems:    ScopeSelf,
		ResourceSnapshots:    ScopeSelf,
		ResourcePlans:        ScopeSelf,
		ResourcePublications: ScopeSelf,
		ResourceProtocols:    ScopeSelf,
		ResourceFoodItems:    ScopeTenant,
	},
}

// writeMatrix is the scope each role gets for creates/updates/deletes.
// Patients may log their own meals but never touch plans or staff records.
var writeMatrix = map[models.Role]map[Resource]Scope{
	models.RoleOwner: {
		ResourceUsers:        ScopeTenant,
		ResourcePatients:     ScopeTenant,
		ResourceMeals:        ScopeTenant,
		ResourceMealItems:    ScopeTenant,
		ResourceSnapshots:    ScopeTenant,
		ResourcePlans:        ScopeTenant,
		ResourcePublications: ScopeTenant,
		ResourceProtocols:    ScopeTenant,
	},
	models.RoleTenantAdmin: {
		ResourceUsers:        ScopeTenant,
		ResourcePatients:     ScopeTenant,
		ResourceMeals:        ScopeTenant,
		ResourceMealItems:    ScopeTenant,
		ResourceSnapshots:    ScopeTenant,
		ResourcePlans:        ScopeTenant,
		ResourcePublications: ScopeTenant,
		ResourceProtocols:    ScopeTenant,
	},
	models.RoleTeam: {
		ResourcePatients:     ScopeAssigned,
		ResourceMeals:        ScopeAssigned,
		ResourceMealItems:    ScopeAssigned,
		ResourceSnapshots:    ScopeAssigned,
		ResourcePlans:        ScopeAssigned,
		ResourcePublications: ScopeAssigned,
		ResourceProtocols:    ScopeAssigned,
	},
	models.RolePatient: {
		ResourceMeals:     ScopeSelf,
		ResourceMealItems: ScopeSelf,
		ResourceSnapshots: ScopeSelf,
	},
}

// mutability is the per-class write rule, independent of role
var mutability = map[Resource]Mutability{
	ResourceUsers:        Mutable,
	ResourcePatients:     NoDelete,
	ResourceMeals:        Mutable,
	ResourceMealItems:    Mutable,
	ResourceSnapshots:    WriteOnce,
	ResourcePlans:        FrozenOnPublish,
	ResourcePublications: WriteOnce,
	ResourceProtocols:    Mutable,
	ResourceFoodItems:    ReadOnly,
}

// ReadScope returns the read scope for a role on a resource class.
// Unknown combinations resolve to none.
func ReadScope(role models.Role, res Resource) Scope {
	return readMatrix[role][res]
}

// WriteScope returns the write scope for a role on a resource class.
// Unknown combinations resolve to none.
func WriteScope(role models.Role, res Resource) Scope {
	return writeMatrix[role][res]
}

// MutabilityOf returns the write rule for a resource class
func MutabilityOf(res Resource) Mutability {
	return mutability[res]
}

// Resources lists every resource class in the matrix
func Resources() []Resource {
	return []Resource{
		ResourceUsers,
		ResourcePatients,
		ResourceMeals,
		ResourceMealItems,
		ResourceSnapshots,
		ResourcePlans,
		ResourcePublications,
		ResourceProtocols,
		ResourceFoodItems,
	}
}

// Roles lists every role the matrix covers
func Roles() []models.Role {
	return []models.Role{
		models.RoleOwner,
		models.RoleTenantAdmin,
		models.RoleTeam,
		models.RolePatient,
	}
}
