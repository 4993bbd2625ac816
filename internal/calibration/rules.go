/**
 * Accept gates
 *
 * Two independently enforced gates decide whether a candidate
 * configuration is committed: the improvement evaluation compares the
 * candidate against the baseline, the verification gate checks fixed
 * absolute thresholds. Both must pass. The thresholds overlap, but the
 * gates stay separate and separately tunable.
 */

package calibration

import "fmt"

const (
	// Improvement evaluation: the confidence factor required when the
	// candidate detects fewer regions than the baseline (noise reduction
	// with much higher certainty).
	noiseReductionFactor = 1.2

	// Verification gate: fixed absolute thresholds.
	verifyMinRegions       = 1
	verifyMinConfidence    = 0.4
	verifyRelativeImproved = 1.1
)

// evaluateImprovement applies the primary accept rule. Returns whether the
// candidate counts as improved and which clause decided it.
func evaluateImprovement(baseline, candidate Metrics) (bool, string) {
	switch {
	case baseline.RegionCount == 0 && candidate.RegionCount >= 1:
		return true, fmt.Sprintf("baseline detected nothing, candidate detected %d regions", candidate.RegionCount)

	case candidate.RegionCount > baseline.RegionCount:
		return true, fmt.Sprintf("region count improved %d -> %d", baseline.RegionCount, candidate.RegionCount)

	case candidate.RegionCount == baseline.RegionCount && candidate.AverageConfidence > baseline.AverageConfidence:
		return true, fmt.Sprintf("equal region count, confidence improved %.3f -> %.3f",
			baseline.AverageConfidence, candidate.AverageConfidence)

	case candidate.RegionCount < baseline.RegionCount && candidate.AverageConfidence > baseline.AverageConfidence*noiseReductionFactor:
		return true, fmt.Sprintf("fewer regions (%d -> %d) but confidence improved %.3f -> %.3f (>%.0f%%)",
			baseline.RegionCount, candidate.RegionCount,
			baseline.AverageConfidence, candidate.AverageConfidence, (noiseReductionFactor-1)*100)
	}

	return false, fmt.Sprintf("no improvement: regions %d -> %d, confidence %.3f -> %.3f",
		baseline.RegionCount, candidate.RegionCount,
		baseline.AverageConfidence, candidate.AverageConfidence)
}

// verifyCandidate applies the independent verification gate with its own
// absolute thresholds, decoupled from the improvement evaluation.
func verifyCandidate(baseline, candidate Metrics) (bool, string) {
	meetsAbsolute := candidate.RegionCount >= verifyMinRegions &&
		candidate.AverageConfidence >= verifyMinConfidence
	if meetsAbsolute {
		return true, fmt.Sprintf("absolute thresholds met: %d regions (min %d), confidence %.3f (min %.2f)",
			candidate.RegionCount, verifyMinRegions, candidate.AverageConfidence, verifyMinConfidence)
	}

	if baseline.AverageConfidence > 0 &&
		candidate.RegionCount >= baseline.RegionCount &&
		candidate.AverageConfidence/baseline.AverageConfidence >= verifyRelativeImproved {
		return true, fmt.Sprintf("relative improvement met: confidence ratio %.3f (min %.2f) without losing regions",
			candidate.AverageConfidence/baseline.AverageConfidence, verifyRelativeImproved)
	}

	return false, fmt.Sprintf("verification thresholds not met: %d regions, confidence %.3f",
		candidate.RegionCount, candidate.AverageConfidence)
}
