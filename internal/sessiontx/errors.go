package sessiontx

import "errors"

var (
	// ErrNotFound is returned for rows that do not exist AND for rows that
	// exist outside the caller's scope. The two cases are deliberately
	// indistinguishable so a caller can never probe for other tenants' data.
	ErrNotFound = errors.New("resource not found")

	// ErrPolicyViolation is returned when a write contradicts the policy
	// matrix: mutating a write-once resource, editing a published plan,
	// requesting owner mode without the OWNER role. It is rejected before
	// anything reaches storage.
	ErrPolicyViolation = errors.New("operation violates access policy")
)
