/**
 * Candidate Generator
 *
 * Derives a candidate engine configuration from the ground-truth regions
 * and basic image statistics. Deterministic, no randomness: the same
 * sample and ground truth always produce the same candidate.
 */

package calibration

import (
	"image"

	"github.com/overlens/calibration-worker/internal/ocr"
)

const (
	// Ground truth proves text exists, so the candidate starts with a
	// confidence bar below the engine default.
	candidateConfidenceThreshold = 0.3

	darkSceneBrightness   = 0.3
	brightSceneBrightness = 0.7

	smallGlyphHeight = 15 // px, below this text needs upscaling
	largeGlyphHeight = 40 // px, above this no upscaling is needed

	// Sampling grid for average brightness; a full scan of a 4K capture
	// is wasted work for a single mean.
	brightnessSampleGrid = 64
)

// GenerateCandidate derives a candidate configuration from the ground-truth
// regions and the sample image. All fields are clamped before returning.
func GenerateCandidate(groundTruth []ocr.TextRegion, img image.Image) ocr.EngineConfig {
	opts := ocr.DefaultPreprocessing()

	brightness := sampledBrightness(img)
	switch {
	case brightness < darkSceneBrightness:
		opts.BrightnessLevel = 1.2
		opts.ContrastLevel = 1.7
	case brightness > brightSceneBrightness:
		opts.BrightnessLevel = 0.9
		opts.ContrastLevel = 1.3
	}

	glyphHeight := averageGlyphHeight(groundTruth)
	switch {
	case glyphHeight > 0 && glyphHeight < smallGlyphHeight:
		opts.ScaleFactor = 1.5
	case glyphHeight > largeGlyphHeight:
		opts.ScaleFactor = 1.0
	}

	return ocr.EngineConfig{
		ConfidenceThreshold: candidateConfidenceThreshold,
		Preprocessing:       opts,
	}.Clamp()
}

// sampledBrightness computes average luminance in [0,1] by systematic pixel
// sampling on a fixed grid rather than a full scan.
func sampledBrightness(img image.Image) float64 {
	if img == nil {
		return 0
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}

	stepX := bounds.Dx() / brightnessSampleGrid
	if stepX < 1 {
		stepX = 1
	}
	stepY := bounds.Dy() / brightnessSampleGrid
	if stepY < 1 {
		stepY = 1
	}

	var sum float64
	var count int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			// Rec. 601 luma over 16-bit channels.
			sum += (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// averageGlyphHeight returns the mean bounding-box height of the
// ground-truth regions, or 0 when there are none.
func averageGlyphHeight(regions []ocr.TextRegion) float64 {
	if len(regions) == 0 {
		return 0
	}

	var sum int
	for _, r := range regions {
		sum += r.Bounds.Height
	}
	return float64(sum) / float64(len(regions))
}
