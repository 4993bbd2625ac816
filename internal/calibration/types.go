/**
 * Calibration pipeline types
 *
 * The run state machine, stage reports, the persisted profile, and the
 * per-run result handed back to callers.
 */

package calibration

import (
	"time"

	"github.com/overlens/calibration-worker/internal/ocr"
)

// Status is the calibration run state. Exactly one terminal state is
// reached per run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"

	// Terminal states
	StatusSuccess                  Status = "success"
	StatusFailedNoTextDetected     Status = "failed_no_text_detected"
	StatusFailedVerificationFailed Status = "failed_verification_failed"
	StatusFailedAIError            Status = "failed_ai_error"
	StatusFailedOtherError         Status = "failed_other_error"
)

// IsTerminal reports whether s ends a run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailedNoTextDetected, StatusFailedVerificationFailed,
		StatusFailedAIError, StatusFailedOtherError:
		return true
	}
	return false
}

// Stage identifies a pipeline stage in reports and diagnostics.
type Stage string

const (
	StageBaseline    Stage = "baseline_capture"
	StageGroundTruth Stage = "ground_truth_extraction"
	StageCandidate   Stage = "candidate_generation"
	StageApply       Stage = "candidate_application"
	StageEvaluate    Stage = "improvement_evaluation"
	StageVerify      Stage = "independent_verification"
	StageCommit      Stage = "commit"
)

// StageReport is the fixed per-stage sub-result recorded on every run.
type StageReport struct {
	Stage             Stage   `json:"stage"`
	Passed            bool    `json:"passed"`
	RegionCount       int     `json:"regionCount"`
	AverageConfidence float64 `json:"averageConfidence"`
	Detail            string  `json:"detail"`
	DurationMs        int64   `json:"durationMs"`
}

// CalibrationProfile is the persisted, per-application OCR configuration
// produced by a successful run. Written only as a complete replacement.
type CalibrationProfile struct {
	ConfidenceThreshold  float64                  `json:"confidenceThreshold"`
	Preprocessing        ocr.PreprocessingOptions `json:"preprocessing"`
	LastCalibrated       time.Time                `json:"lastCalibrated"`
	Attempts             int                      `json:"attempts"`
	IsSuccessful         bool                     `json:"isSuccessful"`
	DetectedRegionsCount int                      `json:"detectedRegionsCount"`
	AverageConfidence    float64                  `json:"averageConfidence"`
	Annotations          map[string]interface{}   `json:"annotations,omitempty"`
}

// EngineConfig converts the profile into a live engine configuration.
func (p *CalibrationProfile) EngineConfig() ocr.EngineConfig {
	return ocr.EngineConfig{
		ConfidenceThreshold: p.ConfidenceThreshold,
		Preprocessing:       p.Preprocessing,
	}.Clamp()
}

// CalibrationResult carries everything a caller needs to understand one
// run: the terminal status, the committed profile when successful, stage
// sub-results, metrics, the diagnostic log, and remediation suggestions.
type CalibrationResult struct {
	RunID         string `json:"runId"`
	ApplicationID string `json:"applicationId"`
	Status        Status `json:"status"`

	Profile          *CalibrationProfile `json:"profile,omitempty"`
	BaselineMetrics  *Metrics            `json:"baselineMetrics,omitempty"`
	CandidateMetrics *Metrics            `json:"candidateMetrics,omitempty"`

	Stages             []StageReport `json:"stages"`
	DiagnosticLog      []string      `json:"diagnosticLog"`
	RecommendedActions []string      `json:"recommendedActions"`
	Elapsed            time.Duration `json:"elapsed"`
}

func (r *CalibrationResult) addStage(report StageReport) {
	r.Stages = append(r.Stages, report)
}

func (r *CalibrationResult) logf(format string, args ...interface{}) {
	r.DiagnosticLog = append(r.DiagnosticLog, timestamped(format, args...))
}
