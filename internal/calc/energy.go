// Package calc holds the shared energy-expenditure formulas. The canary
// integrity check recomputes these against hand-verified vectors, so any
// silent change here surfaces as a CRITICAL finding on the next audit run.
package calc

import "fmt"

// Sex of the subject for BMR purposes
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ActivityFactor multipliers for TDEE
const (
	ActivitySedentary  = 1.2
	ActivityLight      = 1.375
	ActivityModerate   = 1.55
	ActivityActive     = 1.725
	ActivityVeryActive = 1.9
)

// BMRInput are the subject measurements for a basal metabolic rate
type BMRInput struct {
	WeightKg float64
	HeightCm float64
	AgeYears float64
	Sex      Sex
}

// BMR computes basal metabolic rate (kcal/day) with the Mifflin-St Jeor
// equation.
func BMR(in BMRInput) (float64, error) {
	if in.WeightKg <= 0 || in.HeightCm <= 0 || in.AgeYears <= 0 {
		return 0, fmt.Errorf("invalid BMR input: weight=%v height=%v age=%v", in.WeightKg, in.HeightCm, in.AgeYears)
	}
	base := 10*in.WeightKg + 6.25*in.HeightCm - 5*in.AgeYears
	switch in.Sex {
	case SexMale:
		return base + 5, nil
	case SexFemale:
		return base - 161, nil
	default:
		return 0, fmt.Errorf("unknown sex %q", in.Sex)
	}
}

// TDEE computes total daily energy expenditure from BMR and an activity
// factor.
func TDEE(in BMRInput, activityFactor float64) (float64, error) {
	if activityFactor < 1 {
		return 0, fmt.Errorf("activity factor %v below 1", activityFactor)
	}
	bmr, err := BMR(in)
	if err != nil {
		return 0, err
	}
	return bmr * activityFactor, nil
}

// EnergyFromMacros recomputes energy from macronutrients using the Atwater
// factors (4/4/9 kcal per gram).
func EnergyFromMacros(proteinG, carbsG, fatG float64) float64 {
	return proteinG*4 + carbsG*4 + fatG*9
}

// CanaryVector is one fixed, hand-verified input/output pair
type CanaryVector struct {
	Name      string
	Input     BMRInput
	Activity  float64 // 0 means plain BMR
	Expected  float64
	Tolerance float64
}

// CanaryVectors are the fixed vectors the canary check replays. Expected
// values were verified by hand against the published equations; do not
// regenerate them from this code.
func CanaryVectors() []CanaryVector {
	return []CanaryVector{
		{
			Name:      "bmr_male_reference",
			Input:     BMRInput{WeightKg: 80, HeightCm: 175, AgeYears: 30, Sex: SexMale},
			Expected:  1748.75,
			Tolerance: 1,
		},
		{
			Name:      "bmr_female_reference",
			Input:     BMRInput{WeightKg: 65, HeightCm: 162, AgeYears: 40, Sex: SexFemale},
			Expected:  1301.5,
			Tolerance: 1,
		},
		{
			Name:      "tdee_moderate_reference",
			Input:     BMRInput{WeightKg: 80, HeightCm: 175, AgeYears: 30, Sex: SexMale},
			Activity:  ActivityModerate,
			Expected:  2710.5625,
			Tolerance: 1,
		},
	}
}
