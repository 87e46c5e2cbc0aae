package sessiontx

import (
	"fmt"

	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
)

// scopeCond translates a policy scope into the WHERE fragment enforcing it
// for one resource class. The fragment is ANDed onto every statement the
// scoped client issues, so scoping is structural rather than per-call-site.
//
// For reads, TEAM assignment includes unassigned patients; for writes it
// requires an exact assignment match.
func scopeCond(res policy.Resource, scope policy.Scope, claims models.SessionClaims, write bool) (string, []any, error) {
	switch scope {
	case policy.ScopeCrossTenant:
		return "", nil, nil
	case policy.ScopeNone:
		return "", nil, fmt.Errorf("%w: role %s has no access to %s", ErrPolicyViolation, claims.Role, res)
	}

	// Nutrient reference data is global; tenant scope means unrestricted read.
	if res == policy.ResourceFoodItems {
		return "", nil, nil
	}

	table := string(res)
	cond := table + ".tenant_id = ?"
	args := []any{claims.TenantID}
	if scope == policy.ScopeTenant {
		return cond, args, nil
	}

	// ScopeAssigned and ScopeSelf narrow through the patient record
	var patientCond string
	var patientArgs []any
	switch scope {
	case policy.ScopeAssigned:
		if write {
			patientCond = "patients.assigned_team_id = ?"
		} else {
			patientCond = "(patients.assigned_team_id = ? OR patients.assigned_team_id IS NULL)"
		}
		patientArgs = []any{claims.UserID}
	case policy.ScopeSelf:
		patientCond = "patients.user_id = ?"
		patientArgs = []any{claims.UserID}
	}

	switch res {
	case policy.ResourceUsers:
		if scope == policy.ScopeSelf {
			return "users.id = ?", []any{claims.UserID}, nil
		}
		return "", nil, fmt.Errorf("%w: role %s has no access to %s", ErrPolicyViolation, claims.Role, res)

	case policy.ResourcePatients:
		return cond + " AND " + patientCond, append(args, patientArgs...), nil

	case policy.ResourcePublications:
		// Publications carry no patient_id; narrow through their plan version.
		sub := "plan_publications.plan_version_id IN (" +
			"SELECT pv.id FROM plan_versions pv WHERE pv.tenant_id = ? AND pv.patient_id IN (" +
			"SELECT patients.id FROM patients WHERE patients.tenant_id = ? AND " + patientCond + "))"
		args = append(args, claims.TenantID, claims.TenantID)
		args = append(args, patientArgs...)
		return cond + " AND " + sub, args, nil

	default:
		sub := table + ".patient_id IN (" +
			"SELECT patients.id FROM patients WHERE patients.tenant_id = ? AND " + patientCond + ")"
		args = append(args, claims.TenantID)
		args = append(args, patientArgs...)
		return cond + " AND " + sub, args, nil
	}
}
