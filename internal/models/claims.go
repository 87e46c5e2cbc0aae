package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the access role carried by a session
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleTeam        Role = "TEAM"
	RolePatient     Role = "PATIENT"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleTenantAdmin, RoleTeam, RolePatient:
		return true
	}
	return false
}

// SessionClaims is the trusted identity produced by the upstream auth layer.
// It is created once per request, never mutated and never persisted.
type SessionClaims struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     Role
}

// JWTClaims is the wire form of SessionClaims inside the upstream token
type JWTClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Role     string    `json:"role"`
	jwt.RegisteredClaims
}

// SessionClaims converts verified token claims into the immutable value object
func (c *JWTClaims) SessionClaims() SessionClaims {
	return SessionClaims{
		UserID:   c.UserID,
		TenantID: c.TenantID,
		Role:     Role(c.Role),
	}
}
