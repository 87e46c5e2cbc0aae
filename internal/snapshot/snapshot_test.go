package snapshot

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() Payload {
	return Payload{
		FoodItemID:     uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		FoodName:       "Rolled oats",
		DatasetVersion: "usda-sr28",
		QuantityG:      80,
		EnergyKcal:     311.2,
		ProteinG:       13.5,
		CarbsG:         53,
		FatG:           5.5,
		FiberG:         8.5,
		SodiumMg:       1.6,
		Source:         "usda",
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	p := testPayload()

	payload1, hash1, err := Encode(p)
	require.NoError(t, err)
	payload2, hash2, err := Encode(p)
	require.NoError(t, err)

	assert.Equal(t, payload1, payload2)
	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64)
}

func TestEncodeStampsSchemaVersion(t *testing.T) {
	_, _, err := Encode(testPayload())
	require.NoError(t, err)

	payload, _, err := Encode(testPayload())
	require.NoError(t, err)
	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, decoded.SchemaVersion)
}

func TestHashIgnoresKeyOrder(t *testing.T) {
	a := `{"energy_kcal":100,"protein_g":5,"schema_version":1}`
	b := `{"schema_version":1,"protein_g":5,"energy_kcal":100}`

	hashA, err := HashRaw([]byte(a))
	require.NoError(t, err)
	hashB, err := HashRaw([]byte(b))
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestHashDetectsTampering(t *testing.T) {
	payload, hash, err := Encode(testPayload())
	require.NoError(t, err)

	tampered := strings.Replace(payload, "311.2", "250", 1)
	require.NotEqual(t, payload, tampered)

	rehash, err := HashRaw([]byte(tampered))
	require.NoError(t, err)
	assert.NotEqual(t, hash, rehash, "altered payload must change the digest")
}

func TestHashRawRejectsInvalidJSON(t *testing.T) {
	_, err := HashRaw([]byte("{not json"))
	assert.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	p := testPayload()
	payload, _, err := Encode(p)
	require.NoError(t, err)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, p.FoodItemID, decoded.FoodItemID)
	assert.Equal(t, p.QuantityG, decoded.QuantityG)
	assert.Equal(t, p.EnergyKcal, decoded.EnergyKcal)
	assert.Equal(t, p.DatasetVersion, decoded.DatasetVersion)
}
