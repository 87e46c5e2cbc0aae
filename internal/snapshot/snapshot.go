// Package snapshot defines the typed payload of a food snapshot and its
// content addressing. The hash is computed here, in the enforcement layer,
// at write time; the integrity auditor re-derives it through the same
// functions so both paths cannot drift apart.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SchemaVersion is stamped into every payload so later schema changes can
// be decoded correctly without guessing.
const SchemaVersion = 1

// Payload is the nutrient data copied out of the reference dataset at
// meal-logging time, scaled to the logged quantity.
type Payload struct {
	SchemaVersion  int       `json:"schema_version"`
	FoodItemID     uuid.UUID `json:"food_item_id"`
	FoodName       string    `json:"food_name"`
	DatasetVersion string    `json:"dataset_version"`
	QuantityG      float64   `json:"quantity_g"`
	EnergyKcal     float64   `json:"energy_kcal"`
	ProteinG       float64   `json:"protein_g"`
	CarbsG         float64   `json:"carbs_g"`
	FatG           float64   `json:"fat_g"`
	FiberG         float64   `json:"fiber_g"`
	SodiumMg       float64   `json:"sodium_mg"`
	Source         string    `json:"source"`
}

// Canonicalize returns the canonical JSON form of raw JSON: one pass
// through a generic value so object keys come out sorted and whitespace is
// normalized. Hashing canonical form makes the digest independent of the
// field order the writer happened to use.
func Canonicalize(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize payload: %w", err)
	}
	return out, nil
}

// HashRaw canonicalizes raw JSON and returns the sha256 hex digest
func HashRaw(raw []byte) (string, error) {
	canon, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Encode serializes a payload to canonical JSON and its content hash
func Encode(p Payload) (payload string, contentHash string, err error) {
	p.SchemaVersion = SchemaVersion
	raw, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal snapshot payload: %w", err)
	}
	canon, err := Canonicalize(raw)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256(canon)
	return string(canon), hex.EncodeToString(sum[:]), nil
}

// Decode parses a stored payload back into its typed form
func Decode(payload string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Payload{}, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return p, nil
}
