package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func callWithToken(token string, handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestClaimsValidToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	token := signToken(t, testSecret, models.JWTClaims{
		UserID:   userID,
		TenantID: tenantID,
		Role:     string(models.RoleTeam),
	})

	var got models.SessionClaims
	handler := Claims(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaims(r.Context())
		require.True(t, ok)
		got = claims
	}))

	rec := callWithToken(token, handler)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, tenantID, got.TenantID)
	assert.Equal(t, models.RoleTeam, got.Role)
}

func TestClaimsMissingToken(t *testing.T) {
	handler := Claims(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := callWithToken("", handler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimsWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", models.JWTClaims{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     string(models.RoleOwner),
	})

	handler := Claims(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := callWithToken(token, handler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimsIncompleteClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims models.JWTClaims
	}{
		{"missing user", models.JWTClaims{TenantID: uuid.New(), Role: string(models.RoleTeam)}},
		{"missing tenant", models.JWTClaims{UserID: uuid.New(), Role: string(models.RoleTeam)}},
		{"unknown role", models.JWTClaims{UserID: uuid.New(), TenantID: uuid.New(), Role: "SUPERUSER"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, testSecret, tt.claims)
			handler := Claims(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be reached")
			}))

			rec := callWithToken(token, handler)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRoleAllows(t *testing.T) {
	token := signToken(t, testSecret, models.JWTClaims{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     string(models.RoleTenantAdmin),
	})

	reached := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })
	handler := Claims(testSecret)(RequireRole(models.RoleOwner, models.RoleTenantAdmin)(inner))

	rec := callWithToken(token, handler)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

// A role outside the gate gets the same 404 a nonexistent route would, so
// the route's existence never leaks to roles that cannot use it.
func TestRequireRoleHidesRoute(t *testing.T) {
	token := signToken(t, testSecret, models.JWTClaims{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Role:     string(models.RolePatient),
	})

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})
	handler := Claims(testSecret)(RequireRole(models.RoleOwner, models.RoleTenantAdmin)(inner))

	rec := callWithToken(token, handler)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
