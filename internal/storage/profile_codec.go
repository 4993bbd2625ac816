package storage

import (
	"encoding/json"
	"math"

	"github.com/overlens/calibration-worker/internal/calibration"
	"github.com/overlens/calibration-worker/internal/ocr"
)

// EncodeProfile serializes a profile for the JSONB column. Confidence
// values are rounded to 4 decimals so float noise never leaks into stored
// documents.
func EncodeProfile(profile *calibration.CalibrationProfile) ([]byte, error) {
	copied := *profile
	copied.ConfidenceThreshold = sanitizeConfidence(copied.ConfidenceThreshold)
	copied.AverageConfidence = sanitizeConfidence(copied.AverageConfidence)
	return json.Marshal(&copied)
}

// DecodeProfile deserializes a stored profile. The schema has evolved, so
// decoding is tolerant: unknown fields are ignored, a missing preprocessing
// block falls back to defaults, and every field is clamped into range.
func DecodeProfile(raw []byte) (*calibration.CalibrationProfile, error) {
	var profile calibration.CalibrationProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, err
	}

	// Profiles written before the preprocessing block existed decode with
	// a zero struct; treat that as defaults rather than a degenerate
	// all-minimum configuration.
	if profile.Preprocessing == (ocr.PreprocessingOptions{}) {
		profile.Preprocessing = ocr.DefaultPreprocessing()
	}
	profile.Preprocessing = profile.Preprocessing.Clamp()
	profile.ConfidenceThreshold = sanitizeConfidence(profile.ConfidenceThreshold)

	return &profile, nil
}

// sanitizeConfidence clamps to [0,1] and rounds to 4 decimal places
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return math.Round(confidence*10000) / 10000
}
