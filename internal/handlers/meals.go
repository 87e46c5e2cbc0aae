package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/cache"
	"github.com/otcheredev/nutricore/internal/middleware"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/policy"
	"github.com/otcheredev/nutricore/internal/repository"
	"github.com/otcheredev/nutricore/internal/sessiontx"
	"github.com/otcheredev/nutricore/internal/snapshot"
	"github.com/rs/zerolog/log"
)

const foodItemCacheTTL = 15 * time.Minute

// MealsHandler logs meals and their immutable nutrient snapshots
type MealsHandler struct {
	audit *repository.AuditRepository
	cache cache.Cache
}

func NewMealsHandler(audit *repository.AuditRepository, c cache.Cache) *MealsHandler {
	return &MealsHandler{audit: audit, cache: c}
}

type logMealItemRequest struct {
	FoodItemID uuid.UUID `json:"food_item_id"`
	QuantityG  float64   `json:"quantity_g"`
}

type logMealRequest struct {
	Type  string               `json:"type"`
	AteAt time.Time            `json:"ate_at"`
	Items []logMealItemRequest `json:"items"`
}

// LogMeal records one intake for a patient. Every line gets a snapshot of
// the nutrient data as it is right now, scaled to the logged quantity, so
// later dataset releases cannot rewrite the patient's history.
func (h *MealsHandler) LogMeal(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	var req logMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" || len(req.Items) == 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	for _, item := range req.Items {
		if item.QuantityG <= 0 {
			http.Error(w, "Item quantity must be positive", http.StatusBadRequest)
			return
		}
	}
	if req.AteAt.IsZero() {
		req.AteAt = time.Now().UTC()
	}

	meal := &models.Meal{
		PatientID: patientID,
		Type:      req.Type,
		AteAt:     req.AteAt,
	}

	err = sessiontx.WithSession(r.Context(), claims, nil, func(sc *sessiontx.ScopedClient) error {
		if err := sc.Create(policy.ResourceMeals, meal); err != nil {
			return err
		}
		for _, item := range req.Items {
			food, err := h.lookupFoodItem(r, sc, item.FoodItemID)
			if err != nil {
				return err
			}
			snap, err := sc.CreateFoodSnapshot(patientID, scaledPayload(food, item.QuantityG))
			if err != nil {
				return err
			}
			line := &models.MealItem{
				PatientID:  patientID,
				MealID:     meal.ID,
				FoodItemID: food.ID,
				SnapshotID: &snap.ID,
				QuantityG:  item.QuantityG,
			}
			if err := sc.Create(policy.ResourceMealItems, line); err != nil {
				return err
			}
			meal.Items = append(meal.Items, *line)
		}
		return nil
	})
	if err != nil {
		respondError(w, r, h.audit, "meal.log", "meal", patientID.String(), err)
		return
	}

	writeJSON(w, http.StatusCreated, meal)
}

// ListMeals returns a patient's meals visible to the session
func (h *MealsHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	var meals []models.Meal
	err = sessiontx.WithSession(r.Context(), claims, ownerOptions(r), func(sc *sessiontx.ScopedClient) error {
		return sc.Find(policy.ResourceMeals, &meals, "meals.patient_id = ?", patientID)
	})
	if err != nil {
		respondError(w, r, h.audit, "meal.list", "meal", patientID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, meals)
}

// GetSnapshot returns one immutable snapshot visible to the session
func (h *MealsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	snapshotID, err := uuid.Parse(chi.URLParam(r, "snapshotID"))
	if err != nil {
		http.Error(w, "Invalid snapshot ID", http.StatusBadRequest)
		return
	}

	var snap models.FoodSnapshot
	err = sessiontx.WithSession(r.Context(), claims, ownerOptions(r), func(sc *sessiontx.ScopedClient) error {
		return sc.First(policy.ResourceSnapshots, &snap, snapshotID)
	})
	if err != nil {
		respondError(w, r, h.audit, "snapshot.get", "food_snapshot", snapshotID.String(), err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// UpdateSnapshot exists to refuse. Snapshots are write-once; the scoped
// client rejects the mutation for every role, owner included, and the
// attempt lands in the audit trail.
func (h *MealsHandler) UpdateSnapshot(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	snapshotID, err := uuid.Parse(chi.URLParam(r, "snapshotID"))
	if err != nil {
		http.Error(w, "Invalid snapshot ID", http.StatusBadRequest)
		return
	}

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err = sessiontx.WithSession(r.Context(), claims, ownerOptions(r), func(sc *sessiontx.ScopedClient) error {
		return sc.Updates(policy.ResourceSnapshots, snapshotID, updates)
	})
	if err != nil {
		respondError(w, r, h.audit, "snapshot.update", "food_snapshot", snapshotID.String(), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteSnapshot likewise refuses for every role
func (h *MealsHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "Missing session", http.StatusUnauthorized)
		return
	}

	snapshotID, err := uuid.Parse(chi.URLParam(r, "snapshotID"))
	if err != nil {
		http.Error(w, "Invalid snapshot ID", http.StatusBadRequest)
		return
	}

	err = sessiontx.WithSession(r.Context(), claims, ownerOptions(r), func(sc *sessiontx.ScopedClient) error {
		return sc.Delete(policy.ResourceSnapshots, snapshotID)
	})
	if err != nil {
		respondError(w, r, h.audit, "snapshot.delete", "food_snapshot", snapshotID.String(), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// lookupFoodItem resolves one nutrient reference row, cache first. The
// dataset is global read-only data, so caching it is safe for every role.
func (h *MealsHandler) lookupFoodItem(r *http.Request, sc *sessiontx.ScopedClient, id uuid.UUID) (*models.FoodItem, error) {
	key := cache.FoodItemKey(id.String())
	if data, err := h.cache.Get(r.Context(), key); err == nil {
		var food models.FoodItem
		if err := json.Unmarshal(data, &food); err == nil {
			return &food, nil
		}
	}

	var food models.FoodItem
	if err := sc.First(policy.ResourceFoodItems, &food, id); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(food); err == nil {
		if err := h.cache.Set(r.Context(), key, data, foodItemCacheTTL); err != nil {
			log.Warn().Err(err).Str("food_item_id", id.String()).Msg("Failed to cache food item")
		}
	}
	return &food, nil
}

// scaledPayload copies the per-100g reference values into a snapshot
// payload scaled to the logged quantity
func scaledPayload(food *models.FoodItem, quantityG float64) snapshot.Payload {
	factor := quantityG / 100
	return snapshot.Payload{
		FoodItemID:     food.ID,
		FoodName:       food.Name,
		DatasetVersion: food.DatasetVersion,
		QuantityG:      quantityG,
		EnergyKcal:     food.EnergyKcal * factor,
		ProteinG:       food.ProteinG * factor,
		CarbsG:         food.CarbsG * factor,
		FatG:           food.FatG * factor,
		FiberG:         food.FiberG * factor,
		SodiumMg:       food.SodiumMg * factor,
		Source:         "food_items",
	}
}
