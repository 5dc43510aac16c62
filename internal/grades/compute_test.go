package grades

import (
	"math"
	"testing"

	"schoolrecords/internal/shared"
)

func f(v float64) *float64 { return &v }

func TestFinalRating(t *testing.T) {
	cases := []struct {
		name     string
		midterm  *float64
		finals   *float64
		expected float64
	}{
		{"both components", f(80), f(90), 86.00},
		{"failing pair", f(60), f(65), 63.00},
		{"missing midterm counts as zero", nil, f(90), 54.00},
		{"missing finals counts as zero", f(80), nil, 32.00},
		{"both missing", nil, nil, 0},
		{"rounds to two decimals", f(77.77), f(88.88), 84.44},
		{"perfect scores", f(100), f(100), 100.00},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FinalRating(tc.midterm, tc.finals)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("FinalRating(%v, %v) = %v, expected %v", tc.midterm, tc.finals, got, tc.expected)
			}
		})
	}
}

func TestFinalRatingMatchesWeightedFormula(t *testing.T) {
	// round(midterm*0.4 + finals*0.6, 2) across the grading scale
	for m := 0.0; m <= 100; m += 12.5 {
		for fl := 0.0; fl <= 100; fl += 12.5 {
			expected := math.Round((m*0.4+fl*0.6)*100) / 100
			if got := FinalRating(&m, &fl); got != expected {
				t.Fatalf("FinalRating(%v, %v) = %v, expected %v", m, fl, got, expected)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		rating   float64
		expected string
	}{
		{86.00, shared.ActionPassed},
		{75.00, shared.ActionPassed},
		{74.99, shared.ActionFailed},
		{63.00, shared.ActionFailed},
		{0, shared.ActionFailed},
		{100, shared.ActionPassed},
	}

	for _, tc := range cases {
		if got := Classify(tc.rating); got != tc.expected {
			t.Errorf("Classify(%v) = %s, expected %s", tc.rating, got, tc.expected)
		}
	}
}

func TestInScoreRange(t *testing.T) {
	if !InScoreRange(nil) {
		t.Error("nil score should be acceptable")
	}
	if !InScoreRange(f(0)) || !InScoreRange(f(100)) || !InScoreRange(f(75.5)) {
		t.Error("in-range scores should be acceptable")
	}
	if InScoreRange(f(-1)) || InScoreRange(f(120)) {
		t.Error("out-of-range scores should be rejected")
	}
}
