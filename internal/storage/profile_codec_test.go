package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlens/calibration-worker/internal/calibration"
	"github.com/overlens/calibration-worker/internal/ocr"
)

func TestProfileRoundTrip(t *testing.T) {
	profile := &calibration.CalibrationProfile{
		ConfidenceThreshold:  0.3,
		Preprocessing:        ocr.DefaultPreprocessing(),
		LastCalibrated:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Attempts:             3,
		IsSuccessful:         true,
		DetectedRegionsCount: 12,
		AverageConfidence:    0.8214,
	}

	raw, err := EncodeProfile(profile)
	require.NoError(t, err)

	decoded, err := DecodeProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, profile, decoded)
}

func TestEncodeProfileSanitizesConfidence(t *testing.T) {
	profile := &calibration.CalibrationProfile{
		ConfidenceThreshold: 0.123456789,
		Preprocessing:       ocr.DefaultPreprocessing(),
		AverageConfidence:   1.7,
	}

	raw, err := EncodeProfile(profile)
	require.NoError(t, err)

	decoded, err := DecodeProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.1235, decoded.ConfidenceThreshold)
	assert.Equal(t, 1.0, decoded.AverageConfidence)

	// The input profile is never mutated by encoding.
	assert.Equal(t, 0.123456789, profile.ConfidenceThreshold)
}

func TestDecodeProfileLegacyPayload(t *testing.T) {
	// A document written before the preprocessing block existed.
	raw := []byte(`{
		"confidenceThreshold": 0.45,
		"lastCalibrated": "2025-01-10T08:00:00Z",
		"attempts": 2,
		"isSuccessful": true,
		"detectedRegionsCount": 7,
		"averageConfidence": 0.61
	}`)

	decoded, err := DecodeProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.45, decoded.ConfidenceThreshold)
	assert.Equal(t, ocr.DefaultPreprocessing(), decoded.Preprocessing)
	assert.True(t, decoded.IsSuccessful)
}

func TestDecodeProfileIgnoresUnknownFields(t *testing.T) {
	raw := []byte(`{
		"confidenceThreshold": 0.5,
		"preprocessing": {"contrastLevel": 1.2, "brightnessLevel": 1.0, "scaleFactor": 1.0},
		"schemaVersion": 9,
		"legacyNotes": "migrated"
	}`)

	decoded, err := DecodeProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.2, decoded.Preprocessing.ContrastLevel)
}

func TestDecodeProfileClampsOutOfRangeValues(t *testing.T) {
	raw := []byte(`{
		"confidenceThreshold": 4.2,
		"preprocessing": {
			"contrastLevel": 9.9,
			"brightnessLevel": 1.0,
			"scaleFactor": 0.001,
			"threshold": 1000,
			"padding": 500
		}
	}`)

	decoded, err := DecodeProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, decoded.ConfidenceThreshold)
	assert.Equal(t, 2.0, decoded.Preprocessing.ContrastLevel)
	assert.Equal(t, 0.5, decoded.Preprocessing.ScaleFactor)
	assert.Equal(t, 255, decoded.Preprocessing.Threshold)
	assert.Equal(t, 50, decoded.Preprocessing.Padding)
}

func TestDecodeProfileInvalidJSON(t *testing.T) {
	_, err := DecodeProfile([]byte("not json"))
	assert.Error(t, err)
}
