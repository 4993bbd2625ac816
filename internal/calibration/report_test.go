package calibration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatReport(t *testing.T) {
	baseline := Metrics{RegionCount: 0, AverageConfidence: 0}
	candidate := ComputeMetrics(regionsWithConfidences(0.45, 0.85))

	result := &CalibrationResult{
		RunID:            "run-1",
		ApplicationID:    "com.example.app",
		Status:           StatusFailedVerificationFailed,
		BaselineMetrics:  &baseline,
		CandidateMetrics: &candidate,
		Stages: []StageReport{
			{Stage: StageBaseline, Passed: true, Detail: "measured with pre-run configuration"},
			{Stage: StageVerify, Passed: false, Detail: "verification thresholds not met"},
		},
		RecommendedActions: []string{"retry with a screen containing more text"},
		DiagnosticLog:      []string{"10:00:00.000 run started"},
		Elapsed:            1500 * time.Millisecond,
	}

	report := FormatReport(result)

	assert.Contains(t, report, "run-1")
	assert.Contains(t, report, string(StatusFailedVerificationFailed))
	assert.Contains(t, report, "Candidate: 2 regions")
	assert.Contains(t, report, "0.4-0.5=1")
	assert.Contains(t, report, "0.8-0.9=1")
	assert.Contains(t, report, "independent_verification")
	assert.Contains(t, report, "failed")
	assert.Contains(t, report, "retry with a screen containing more text")
	assert.Contains(t, report, "run started")
}
