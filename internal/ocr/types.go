/**
 * OCR engine types for the calibration worker
 *
 * TextRegion and EngineConfig are the shared vocabulary between the
 * live engine, the ground-truth extractor, and the calibration pipeline.
 */

package ocr

// Rect is a pixel-space bounding box
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TextRegion is a detected span of text with its bounding box and a
// confidence score in [0,1]. Immutable once produced.
type TextRegion struct {
	Text       string  `json:"text"`
	Bounds     Rect    `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// PreprocessingOptions controls the image pipeline applied before detection.
// Values outside the valid ranges are clamped before use, never rejected.
type PreprocessingOptions struct {
	ContrastLevel   float64 `json:"contrastLevel"`   // 0.5 - 2.0
	BrightnessLevel float64 `json:"brightnessLevel"` // 0.5 - 1.5
	SharpnessLevel  float64 `json:"sharpnessLevel"`  // 0.0 - 3.0
	NoiseReduction  int     `json:"noiseReduction"`  // 0 - 3
	ScaleFactor     float64 `json:"scaleFactor"`     // 0.5 - 2.0
	Threshold       int     `json:"threshold"`       // 0 - 255, 0 disables binarization
	Padding         int     `json:"padding"`         // 0 - 50 px
}

// DefaultPreprocessing returns the preprocessing baseline the candidate
// generator starts from.
func DefaultPreprocessing() PreprocessingOptions {
	return PreprocessingOptions{
		ContrastLevel:   1.5,
		BrightnessLevel: 1.0,
		SharpnessLevel:  0.5,
		NoiseReduction:  0,
		ScaleFactor:     1.2,
		Threshold:       0,
		Padding:         5,
	}
}

// Clamp returns a copy of o with every field forced into its valid range.
// Clamping is idempotent.
func (o PreprocessingOptions) Clamp() PreprocessingOptions {
	o.ContrastLevel = clampFloat(o.ContrastLevel, 0.5, 2.0)
	o.BrightnessLevel = clampFloat(o.BrightnessLevel, 0.5, 1.5)
	o.SharpnessLevel = clampFloat(o.SharpnessLevel, 0.0, 3.0)
	o.NoiseReduction = clampInt(o.NoiseReduction, 0, 3)
	o.ScaleFactor = clampFloat(o.ScaleFactor, 0.5, 2.0)
	o.Threshold = clampInt(o.Threshold, 0, 255)
	o.Padding = clampInt(o.Padding, 0, 50)
	return o
}

// EngineConfig is the live engine configuration the pipeline snapshots,
// mutates, and restores. It is a plain value type so pre-run and post-run
// configurations compare with ==.
type EngineConfig struct {
	ConfidenceThreshold float64              `json:"confidenceThreshold"` // 0.0 - 1.0
	Preprocessing       PreprocessingOptions `json:"preprocessing"`
}

// Clamp returns a copy of c with all fields forced into their valid ranges.
func (c EngineConfig) Clamp() EngineConfig {
	c.ConfidenceThreshold = clampFloat(c.ConfidenceThreshold, 0.0, 1.0)
	c.Preprocessing = c.Preprocessing.Clamp()
	return c
}

// DefaultConfig returns the engine configuration used before any
// calibration has run.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		ConfidenceThreshold: 0.5,
		Preprocessing:       DefaultPreprocessing(),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
