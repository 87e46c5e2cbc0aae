// Package sessiontx is the single chokepoint every data operation passes
// through. WithSession wraps one unit of work in one database transaction,
// binds the session claims transaction-locally and hands the caller a
// ScopedClient whose every statement is filtered by the policy matrix.
package sessiontx

import (
	"context"
	"fmt"

	"github.com/otcheredev/nutricore/internal/database"
	"github.com/otcheredev/nutricore/internal/models"
	"gorm.io/gorm"
)

// Options control session elevation. OwnerMode is the only way an OWNER
// claim may see rows outside its own tenant; without it OWNER behaves
// exactly like TENANT_ADMIN. Elevation is explicit at the call site on
// purpose, never implicit in the role.
type Options struct {
	OwnerMode bool
}

// WithSession runs fn inside exactly one transaction with the claims bound
// to it. Any error from fn rolls the transaction back entirely; partial
// writes under a policy violation are never observable.
func WithSession(ctx context.Context, claims models.SessionClaims, opts *Options, fn func(*ScopedClient) error) error {
	return withSessionDB(ctx, database.DB, claims, opts, fn)
}

// withSessionDB exists so tests can supply their own gorm handle
func withSessionDB(ctx context.Context, db *gorm.DB, claims models.SessionClaims, opts *Options, fn func(*ScopedClient) error) error {
	if !claims.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrPolicyViolation, claims.Role)
	}

	ownerMode := false
	if opts != nil && opts.OwnerMode {
		if claims.Role != models.RoleOwner {
			return fmt.Errorf("%w: owner mode requires the OWNER role, got %s", ErrPolicyViolation, claims.Role)
		}
		ownerMode = true
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bindClaims(tx, claims, ownerMode); err != nil {
			return err
		}
		return fn(&ScopedClient{tx: tx, claims: claims, ownerMode: ownerMode})
	})
}

// bindClaims runs as the first statements of the transaction. set_config
// with is_local=true scopes each setting to the current transaction: it
// resets at commit or rollback, so a pooled connection reused by the next
// request carries nothing over. The settings feed the store's row-level
// security policies; binding at connection or process scope would leak
// claims across unrelated requests under load.
func bindClaims(tx *gorm.DB, claims models.SessionClaims, ownerMode bool) error {
	settings := []struct {
		key   string
		value string
	}{
		{"app.tenant_id", claims.TenantID.String()},
		{"app.user_id", claims.UserID.String()},
		{"app.role", string(claims.Role)},
		{"app.owner_mode", fmt.Sprintf("%t", ownerMode)},
	}
	for _, s := range settings {
		if err := tx.Exec("SELECT set_config(?, ?, true)", s.key, s.value).Error; err != nil {
			return fmt.Errorf("failed to bind session claims: %w", err)
		}
	}
	return nil
}
