package grades

import (
	"math"

	"schoolrecords/internal/shared"
)

// PassingRating is the minimum final rating classified as PASSED.
const PassingRating = 75.0

// Component weights for the final rating.
const (
	midtermWeight = 0.4
	finalsWeight  = 0.6
)

// FinalRating derives the final rating from the midterm and finals scores.
// A missing component counts as 0. The result is rounded to two decimals.
func FinalRating(midterm, finals *float64) float64 {
	var m, f float64
	if midterm != nil {
		m = *midterm
	}
	if finals != nil {
		f = *finals
	}
	return round2(m*midtermWeight + f*finalsWeight)
}

// Classify maps a final rating to its pass/fail action.
func Classify(rating float64) string {
	if rating >= PassingRating {
		return shared.ActionPassed
	}
	return shared.ActionFailed
}

// InScoreRange reports whether a component score is acceptable: either
// unset, or within the 0-100 grading scale.
func InScoreRange(score *float64) bool {
	return score == nil || (*score >= 0 && *score <= 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
