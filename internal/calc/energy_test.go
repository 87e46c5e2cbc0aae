package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBMRReferenceVector(t *testing.T) {
	got, err := BMR(BMRInput{WeightKg: 80, HeightCm: 175, AgeYears: 30, Sex: SexMale})
	require.NoError(t, err)
	assert.InDelta(t, 1748.75, got, 1)
}

func TestBMRFemale(t *testing.T) {
	got, err := BMR(BMRInput{WeightKg: 65, HeightCm: 162, AgeYears: 40, Sex: SexFemale})
	require.NoError(t, err)
	assert.InDelta(t, 1301.5, got, 1)
}

func TestBMRRejectsBadInput(t *testing.T) {
	_, err := BMR(BMRInput{WeightKg: 0, HeightCm: 175, AgeYears: 30, Sex: SexMale})
	assert.Error(t, err)

	_, err = BMR(BMRInput{WeightKg: 80, HeightCm: 175, AgeYears: 30, Sex: Sex("other")})
	assert.Error(t, err)
}

func TestTDEE(t *testing.T) {
	got, err := TDEE(BMRInput{WeightKg: 80, HeightCm: 175, AgeYears: 30, Sex: SexMale}, ActivityModerate)
	require.NoError(t, err)
	assert.InDelta(t, 1748.75*1.55, got, 0.001)

	_, err = TDEE(BMRInput{WeightKg: 80, HeightCm: 175, AgeYears: 30, Sex: SexMale}, 0.5)
	assert.Error(t, err)
}

func TestEnergyFromMacros(t *testing.T) {
	assert.Equal(t, 400.0, EnergyFromMacros(25, 50, 100.0/9))
	assert.Equal(t, 0.0, EnergyFromMacros(0, 0, 0))
}

func TestCanaryVectorsHold(t *testing.T) {
	// The canary vectors themselves must pass against the current formulas;
	// if this test fails the integrity auditor would flag CRITICAL drift.
	for _, v := range CanaryVectors() {
		var got float64
		var err error
		if v.Activity > 0 {
			got, err = TDEE(v.Input, v.Activity)
		} else {
			got, err = BMR(v.Input)
		}
		require.NoError(t, err, v.Name)
		assert.LessOrEqual(t, math.Abs(got-v.Expected), v.Tolerance, v.Name)
	}
}
