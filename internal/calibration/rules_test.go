package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateImprovement(t *testing.T) {
	tests := []struct {
		name      string
		baseline  Metrics
		candidate Metrics
		improved  bool
	}{
		{
			name:      "baseline empty candidate finds text",
			baseline:  Metrics{RegionCount: 0, AverageConfidence: 0},
			candidate: Metrics{RegionCount: 1, AverageConfidence: 0.2},
			improved:  true,
		},
		{
			name:      "more regions wins even with lower confidence",
			baseline:  Metrics{RegionCount: 3, AverageConfidence: 0.9},
			candidate: Metrics{RegionCount: 5, AverageConfidence: 0.5},
			improved:  true,
		},
		{
			name:      "equal regions higher confidence",
			baseline:  Metrics{RegionCount: 4, AverageConfidence: 0.5},
			candidate: Metrics{RegionCount: 4, AverageConfidence: 0.51},
			improved:  true,
		},
		{
			name:      "equal regions equal confidence is not improved",
			baseline:  Metrics{RegionCount: 4, AverageConfidence: 0.5},
			candidate: Metrics{RegionCount: 4, AverageConfidence: 0.5},
			improved:  false,
		},
		{
			name:      "fewer regions needs 20 percent confidence gain",
			baseline:  Metrics{RegionCount: 5, AverageConfidence: 0.5},
			candidate: Metrics{RegionCount: 3, AverageConfidence: 0.61},
			improved:  true,
		},
		{
			name:      "fewer regions at exactly the factor is not improved",
			baseline:  Metrics{RegionCount: 5, AverageConfidence: 0.5},
			candidate: Metrics{RegionCount: 3, AverageConfidence: 0.6},
			improved:  false,
		},
		{
			name:      "both empty",
			baseline:  Metrics{RegionCount: 0, AverageConfidence: 0},
			candidate: Metrics{RegionCount: 0, AverageConfidence: 0},
			improved:  false,
		},
		{
			name:      "strictly worse",
			baseline:  Metrics{RegionCount: 5, AverageConfidence: 0.8},
			candidate: Metrics{RegionCount: 2, AverageConfidence: 0.4},
			improved:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			improved, detail := evaluateImprovement(tt.baseline, tt.candidate)
			assert.Equal(t, tt.improved, improved, detail)
			assert.NotEmpty(t, detail)
		})
	}
}

func TestVerifyCandidate(t *testing.T) {
	tests := []struct {
		name      string
		baseline  Metrics
		candidate Metrics
		verified  bool
	}{
		{
			name:      "absolute thresholds met",
			baseline:  Metrics{},
			candidate: Metrics{RegionCount: 1, AverageConfidence: 0.4},
			verified:  true,
		},
		{
			name:      "no regions",
			baseline:  Metrics{RegionCount: 2, AverageConfidence: 0.9},
			candidate: Metrics{RegionCount: 0, AverageConfidence: 0},
			verified:  false,
		},
		{
			name:      "confidence below absolute and no relative path",
			baseline:  Metrics{RegionCount: 0, AverageConfidence: 0},
			candidate: Metrics{RegionCount: 3, AverageConfidence: 0.39},
			verified:  false,
		},
		{
			name:      "relative path rescues low absolute confidence",
			baseline:  Metrics{RegionCount: 3, AverageConfidence: 0.3},
			candidate: Metrics{RegionCount: 3, AverageConfidence: 0.34},
			verified:  true,
		},
		{
			name:      "relative path rejected when regions were lost",
			baseline:  Metrics{RegionCount: 4, AverageConfidence: 0.3},
			candidate: Metrics{RegionCount: 3, AverageConfidence: 0.39},
			verified:  false,
		},
		{
			name:      "relative ratio below minimum",
			baseline:  Metrics{RegionCount: 3, AverageConfidence: 0.3},
			candidate: Metrics{RegionCount: 3, AverageConfidence: 0.32},
			verified:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verified, detail := verifyCandidate(tt.baseline, tt.candidate)
			assert.Equal(t, tt.verified, verified, detail)
		})
	}
}

// The gates are independent: metric pairs exist that pass exactly one of
// the two. Both must hold for a commit.
func TestGatesAreIndependent(t *testing.T) {
	// Improved (baseline empty, candidate found text) but not verified
	// (confidence below the absolute floor, no relative path).
	baseline := Metrics{RegionCount: 0, AverageConfidence: 0}
	candidate := Metrics{RegionCount: 2, AverageConfidence: 0.2}

	improved, _ := evaluateImprovement(baseline, candidate)
	verified, _ := verifyCandidate(baseline, candidate)
	assert.True(t, improved)
	assert.False(t, verified)

	// Verified (absolute thresholds met) but not improved (identical to
	// baseline).
	baseline = Metrics{RegionCount: 2, AverageConfidence: 0.6}
	candidate = Metrics{RegionCount: 2, AverageConfidence: 0.6}

	improved, _ = evaluateImprovement(baseline, candidate)
	verified, _ = verifyCandidate(baseline, candidate)
	assert.False(t, improved)
	assert.True(t, verified)
}
