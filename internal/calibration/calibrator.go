/**
 * Calibration Orchestrator
 *
 * Drives the seven-stage pipeline against a live OCR engine:
 * baseline capture -> ground-truth extraction -> candidate generation ->
 * candidate application -> improvement evaluation -> independent
 * verification -> commit or rollback.
 *
 * The engine's live configuration is snapshot before the run and restored
 * whenever the run does not end in success, regardless of how it failed.
 */

package calibration

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	calerrors "github.com/overlens/calibration-worker/internal/errors"
	"github.com/overlens/calibration-worker/internal/logging"
	"github.com/overlens/calibration-worker/internal/ocr"
)

// GroundTruthSource supplies the independent, higher-trust detection used
// to validate that text exists and to steer preprocessing choices.
type GroundTruthSource interface {
	Extract(ctx context.Context, img image.Image, seedText string) ([]ocr.TextRegion, error)
}

// ProfileStore persists per-application calibration profiles. Get returns
// nil without error when no profile exists.
type ProfileStore interface {
	Get(ctx context.Context, applicationID string) (*CalibrationProfile, error)
	Put(ctx context.Context, applicationID string, profile *CalibrationProfile) error
	List(ctx context.Context) ([]string, error)
}

// Calibrator owns the pipeline state machine and the locks that serialize
// access to the single shared engine configuration.
type Calibrator struct {
	engine ocr.Engine
	source GroundTruthSource
	store  ProfileStore
	logger *logging.Logger

	// engineMu is held for the whole run: the baseline must measure the
	// same configuration the rollback restores, so the lock cannot be
	// narrowed to the mutation stages alone.
	engineMu sync.Mutex

	identityMu    sync.Mutex
	identityLocks map[string]*sync.Mutex
}

// NewCalibrator creates a calibrator over the given collaborators.
func NewCalibrator(engine ocr.Engine, source GroundTruthSource, store ProfileStore) *Calibrator {
	return &Calibrator{
		engine:        engine,
		source:        source,
		store:         store,
		logger:        logging.NewLogger("Calibrator"),
		identityLocks: make(map[string]*sync.Mutex),
	}
}

// Calibrate runs the full pipeline for one application identity against one
// sample image. It always returns a result in a terminal state; faults are
// converted into states, never raised to the caller.
func (c *Calibrator) Calibrate(ctx context.Context, applicationID string, sample image.Image) *CalibrationResult {
	start := time.Now()
	result := &CalibrationResult{
		RunID:         uuid.New().String(),
		ApplicationID: applicationID,
		Status:        StatusInProgress,
	}
	defer func() { result.Elapsed = time.Since(start) }()

	if sample == nil || sample.Bounds().Empty() {
		result.logf("sample image is empty, nothing to calibrate")
		result.Status = StatusFailedOtherError
		result.RecommendedActions = recommendationsFor(StatusFailedOtherError, nil)
		return result
	}

	// Overlapping runs for one identity would corrupt each other's
	// rollback snapshot.
	lock := c.identityLock(applicationID)
	lock.Lock()
	defer lock.Unlock()

	c.engineMu.Lock()
	defer c.engineMu.Unlock()

	snapshot := c.engine.GetConfiguration()
	result.logf("run %s started for %q, engine threshold %.2f, sample %dx%d",
		result.RunID, applicationID, snapshot.ConfidenceThreshold,
		sample.Bounds().Dx(), sample.Bounds().Dy())
	c.logger.Info("Calibration run started",
		"runId", result.RunID, "application", applicationID)

	// Stage 1: baseline capture with the pre-run configuration.
	stageStart := time.Now()
	baselineRegions, err := c.engine.DetectText(ctx, sample)
	if err != nil {
		result.addStage(StageReport{Stage: StageBaseline, Detail: err.Error(), DurationMs: msSince(stageStart)})
		return c.fail(result, snapshot, StatusFailedOtherError, "baseline detection failed: %v", err)
	}
	baseline := ComputeMetrics(baselineRegions)
	result.BaselineMetrics = &baseline
	result.addStage(StageReport{
		Stage:             StageBaseline,
		Passed:            true,
		RegionCount:       baseline.RegionCount,
		AverageConfidence: baseline.AverageConfidence,
		Detail:            "measured with pre-run configuration",
		DurationMs:        msSince(stageStart),
	})
	result.logf("baseline: %d regions, avg confidence %.3f", baseline.RegionCount, baseline.AverageConfidence)

	// Stage 2: ground-truth extraction.
	if cancelled := c.checkCancelled(ctx, result, snapshot, StageGroundTruth); cancelled != nil {
		return cancelled
	}
	stageStart = time.Now()
	groundTruth, err := c.source.Extract(ctx, sample, concatText(baselineRegions))
	if err != nil {
		result.addStage(StageReport{Stage: StageGroundTruth, Detail: err.Error(), DurationMs: msSince(stageStart)})
		if code := calerrors.CodeOf(err); code != "" {
			result.logf("ground-truth fault code: %s", code)
		}
		return c.fail(result, snapshot, StatusFailedAIError, "ground-truth extraction fault: %v", err)
	}
	if len(groundTruth) == 0 {
		result.addStage(StageReport{Stage: StageGroundTruth, Detail: "no usable regions", DurationMs: msSince(stageStart)})
		return c.fail(result, snapshot, StatusFailedNoTextDetected,
			"ground truth returned no regions; nothing to calibrate against")
	}
	gtMetrics := ComputeMetrics(groundTruth)
	result.addStage(StageReport{
		Stage:             StageGroundTruth,
		Passed:            true,
		RegionCount:       gtMetrics.RegionCount,
		AverageConfidence: gtMetrics.AverageConfidence,
		Detail:            "independent detection succeeded",
		DurationMs:        msSince(stageStart),
	})
	result.logf("ground truth: %d regions", len(groundTruth))

	// Stage 3: candidate generation.
	if cancelled := c.checkCancelled(ctx, result, snapshot, StageCandidate); cancelled != nil {
		return cancelled
	}
	stageStart = time.Now()
	candidate := GenerateCandidate(groundTruth, sample)
	result.addStage(StageReport{
		Stage:  StageCandidate,
		Passed: true,
		Detail: fmt.Sprintf("threshold %.2f, contrast %.2f, brightness %.2f, scale %.2f",
			candidate.ConfidenceThreshold, candidate.Preprocessing.ContrastLevel,
			candidate.Preprocessing.BrightnessLevel, candidate.Preprocessing.ScaleFactor),
		DurationMs: msSince(stageStart),
	})
	result.logf("candidate: threshold %.2f, preprocessing %+v", candidate.ConfidenceThreshold, candidate.Preprocessing)

	// Stage 4: candidate application and re-measurement. From here on the
	// engine carries the candidate configuration and every exit path must
	// roll back.
	if cancelled := c.checkCancelled(ctx, result, snapshot, StageApply); cancelled != nil {
		return cancelled
	}
	stageStart = time.Now()
	c.engine.SetConfiguration(candidate)
	candidateRegions, err := c.engine.DetectText(ctx, sample)
	if err != nil {
		result.addStage(StageReport{Stage: StageApply, Detail: err.Error(), DurationMs: msSince(stageStart)})
		return c.fail(result, snapshot, StatusFailedOtherError, "re-measurement with candidate failed: %v", err)
	}
	candMetrics := ComputeMetrics(candidateRegions)
	result.CandidateMetrics = &candMetrics
	result.addStage(StageReport{
		Stage:             StageApply,
		Passed:            true,
		RegionCount:       candMetrics.RegionCount,
		AverageConfidence: candMetrics.AverageConfidence,
		Detail:            "measured with candidate configuration",
		DurationMs:        msSince(stageStart),
	})
	result.logf("candidate measurement: %d regions, avg confidence %.3f",
		candMetrics.RegionCount, candMetrics.AverageConfidence)

	// Stage 5: improvement evaluation against the baseline.
	if cancelled := c.checkCancelled(ctx, result, snapshot, StageEvaluate); cancelled != nil {
		return cancelled
	}
	improved, evalDetail := evaluateImprovement(baseline, candMetrics)
	result.addStage(StageReport{
		Stage:             StageEvaluate,
		Passed:            improved,
		RegionCount:       candMetrics.RegionCount,
		AverageConfidence: candMetrics.AverageConfidence,
		Detail:            evalDetail,
	})
	result.logf("improvement evaluation: %v (%s)", improved, evalDetail)

	// Stage 6: independent verification with fixed absolute thresholds.
	// Always evaluated so diagnostics carry the verdict and histogram even
	// when stage 5 already failed.
	if cancelled := c.checkCancelled(ctx, result, snapshot, StageVerify); cancelled != nil {
		return cancelled
	}
	verified, verifyDetail := verifyCandidate(baseline, candMetrics)
	result.addStage(StageReport{
		Stage:             StageVerify,
		Passed:            verified,
		RegionCount:       candMetrics.RegionCount,
		AverageConfidence: candMetrics.AverageConfidence,
		Detail:            verifyDetail,
	})
	result.logf("independent verification: %v (%s)", verified, verifyDetail)

	// Stage 7: commit or rollback. Both gates must pass.
	if cancelled := c.checkCancelled(ctx, result, snapshot, StageCommit); cancelled != nil {
		return cancelled
	}
	if !improved || !verified {
		result.addStage(StageReport{
			Stage:  StageCommit,
			Detail: fmt.Sprintf("gates not passed: improved=%v verified=%v", improved, verified),
		})
		return c.fail(result, snapshot, StatusFailedVerificationFailed,
			"candidate rejected: improved=%v verified=%v", improved, verified)
	}

	profile, err := c.commit(ctx, result, candMetrics)
	if err != nil {
		result.addStage(StageReport{Stage: StageCommit, Detail: err.Error()})
		return c.fail(result, snapshot, StatusFailedOtherError, "profile persistence failed: %v", err)
	}
	result.addStage(StageReport{
		Stage:             StageCommit,
		Passed:            true,
		RegionCount:       candMetrics.RegionCount,
		AverageConfidence: candMetrics.AverageConfidence,
		Detail:            "profile committed, engine keeps candidate configuration",
	})
	result.logf("profile committed (attempt %d), run successful", profile.Attempts)

	result.Profile = profile
	result.Status = StatusSuccess
	c.logger.Info("Calibration run succeeded",
		"runId", result.RunID,
		"application", applicationID,
		"regions", candMetrics.RegionCount,
		"confidence", candMetrics.AverageConfidence)
	return result
}

// GetProfile returns the stored profile for an application identity, or nil
// when none exists.
func (c *Calibrator) GetProfile(ctx context.Context, applicationID string) (*CalibrationProfile, error) {
	return c.store.Get(ctx, applicationID)
}

// ListCalibratedApplications returns every application identity with a
// stored profile.
func (c *Calibrator) ListCalibratedApplications(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}

// ApplyStoredProfile reapplies a previously committed profile to the live
// engine without recalibrating. Returns false when no successful profile
// exists for the identity.
func (c *Calibrator) ApplyStoredProfile(ctx context.Context, applicationID string) (bool, error) {
	profile, err := c.store.Get(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if profile == nil || !profile.IsSuccessful {
		return false, nil
	}

	c.engineMu.Lock()
	defer c.engineMu.Unlock()
	c.engine.SetConfiguration(profile.EngineConfig())

	c.logger.Info("Stored profile applied",
		"application", applicationID,
		"threshold", profile.ConfidenceThreshold)
	return true, nil
}

// commit builds the replacement profile and persists it. The stored profile
// is always a complete replacement, never a field-level mutation.
func (c *Calibrator) commit(ctx context.Context, result *CalibrationResult, candidate Metrics) (*CalibrationProfile, error) {
	attempts := 1
	prior, err := c.store.Get(ctx, result.ApplicationID)
	if err != nil {
		result.logf("could not read prior profile, attempt count restarts: %v", err)
	} else if prior != nil {
		attempts = prior.Attempts + 1
	}

	applied := c.engine.GetConfiguration()
	profile := &CalibrationProfile{
		ConfidenceThreshold:  applied.ConfidenceThreshold,
		Preprocessing:        applied.Preprocessing,
		LastCalibrated:       time.Now().UTC(),
		Attempts:             attempts,
		IsSuccessful:         true,
		DetectedRegionsCount: candidate.RegionCount,
		AverageConfidence:    candidate.AverageConfidence,
		Annotations: map[string]interface{}{
			"runId":              result.RunID,
			"baselineRegions":    result.BaselineMetrics.RegionCount,
			"baselineConfidence": result.BaselineMetrics.AverageConfidence,
		},
	}

	if err := c.store.Put(ctx, result.ApplicationID, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// fail terminates the run: restores the pre-run engine configuration,
// records the failure, and attaches remediation suggestions.
func (c *Calibrator) fail(result *CalibrationResult, snapshot ocr.EngineConfig, status Status, format string, args ...interface{}) *CalibrationResult {
	result.logf(format, args...)
	c.engine.SetConfiguration(snapshot)
	result.logf("engine configuration restored to pre-run snapshot")

	result.Status = status
	result.RecommendedActions = recommendationsFor(status, result.CandidateMetrics)

	c.logger.Warn("Calibration run failed",
		"runId", result.RunID,
		"application", result.ApplicationID,
		"status", status)
	return result
}

// checkCancelled terminates the run when the context is done. A cancelled
// run still restores the pre-run configuration.
func (c *Calibrator) checkCancelled(ctx context.Context, result *CalibrationResult, snapshot ocr.EngineConfig, next Stage) *CalibrationResult {
	if err := ctx.Err(); err != nil {
		return c.fail(result, snapshot, StatusFailedOtherError, "run cancelled before %s: %v", next, err)
	}
	return nil
}

func (c *Calibrator) identityLock(applicationID string) *sync.Mutex {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()

	lock, ok := c.identityLocks[applicationID]
	if !ok {
		lock = &sync.Mutex{}
		c.identityLocks[applicationID] = lock
	}
	return lock
}

// recommendationsFor maps a terminal failure onto actionable suggestions.
func recommendationsFor(status Status, candidate *Metrics) []string {
	switch status {
	case StatusFailedNoTextDetected:
		return []string{
			"capture a screen with more visible text",
			"ensure the target window is fully visible and not minimized",
		}
	case StatusFailedVerificationFailed:
		actions := []string{"retry with a screen containing more text"}
		if candidate != nil && candidate.AverageConfidence < verifyMinConfidence {
			actions = append(actions,
				"increase image contrast before capture",
				"try a larger capture region so text renders at a bigger size")
		}
		return actions
	case StatusFailedAIError:
		return []string{
			"check vision backend connectivity and credentials",
			"retry calibration once the backend is reachable",
		}
	default:
		return []string{"inspect the diagnostic log and retry calibration"}
	}
}

func concatText(regions []ocr.TextRegion) string {
	var b strings.Builder
	for i, r := range regions {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

func msSince(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
