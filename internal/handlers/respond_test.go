package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/sessiontx"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestRespondErrorNotFound(t *testing.T) {
	for _, err := range []error{
		sessiontx.ErrNotFound,
		fmt.Errorf("loading row: %w", sessiontx.ErrNotFound),
		gorm.ErrRecordNotFound,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/patients/x", nil)
		respondError(rec, req, nil, "patient.get", "patient", "", err)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Not found\n", rec.Body.String())
	}
}

func TestRespondErrorPolicyViolation(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/snapshots/x", nil)
	err := fmt.Errorf("%w: food_snapshots records are immutable once created", sessiontx.ErrPolicyViolation)
	respondError(rec, req, nil, "snapshot.update", "food_snapshot", "", err)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "immutable")
}

func TestRespondErrorInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	respondError(rec, req, nil, "patient.list", "patient", "", errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Storage errors never reach the caller verbatim
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestScaledPayload(t *testing.T) {
	food := &models.FoodItem{
		ID:             uuid.New(),
		Name:           "Rolled oats",
		EnergyKcal:     379,
		ProteinG:       13.2,
		CarbsG:         67.7,
		FatG:           6.5,
		FiberG:         10.1,
		SodiumMg:       6,
		DatasetVersion: "2026.1",
	}

	p := scaledPayload(food, 50)

	assert.Equal(t, food.ID, p.FoodItemID)
	assert.Equal(t, "Rolled oats", p.FoodName)
	assert.Equal(t, "2026.1", p.DatasetVersion)
	assert.Equal(t, 50.0, p.QuantityG)
	assert.InDelta(t, 189.5, p.EnergyKcal, 1e-9)
	assert.InDelta(t, 6.6, p.ProteinG, 1e-9)
	assert.InDelta(t, 3.25, p.FatG, 1e-9)
	assert.InDelta(t, 3.0, p.SodiumMg, 1e-9)
}

func TestOwnerOptions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	assert.Nil(t, ownerOptions(req))

	req.Header.Set("X-Owner-Mode", "true")
	opts := ownerOptions(req)
	if assert.NotNil(t, opts) {
		assert.True(t, opts.OwnerMode)
	}

	req.Header.Set("X-Owner-Mode", "1")
	assert.Nil(t, ownerOptions(req))
}
