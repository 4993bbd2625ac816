/**
 * Image preprocessing pipeline
 *
 * Applies PreprocessingOptions to a capture before detection. The pipeline
 * order matters for OCR quality: grayscale, denoise, tone adjustments,
 * sharpen, scale, binarize, pad.
 */

package ocr

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Preprocess applies opts to img and returns the processed image. opts is
// clamped before use.
func Preprocess(img image.Image, opts PreprocessingOptions) image.Image {
	opts = opts.Clamp()

	// Grayscale first: UI text detection is far more stable without hue.
	out := imaging.Grayscale(img)

	if opts.NoiseReduction > 0 {
		out = imaging.Blur(out, 0.5*float64(opts.NoiseReduction))
	}

	if opts.BrightnessLevel != 1.0 {
		out = imaging.AdjustBrightness(out, (opts.BrightnessLevel-1.0)*100)
	}

	if opts.ContrastLevel != 1.0 {
		out = imaging.AdjustContrast(out, (opts.ContrastLevel-1.0)*100)
	}

	if opts.SharpnessLevel > 0 {
		out = imaging.Sharpen(out, opts.SharpnessLevel)
	}

	if opts.ScaleFactor != 1.0 {
		width := int(math.Round(float64(out.Bounds().Dx()) * opts.ScaleFactor))
		if width < 1 {
			width = 1
		}
		out = imaging.Resize(out, width, 0, imaging.Lanczos)
	}

	if opts.Threshold > 0 {
		cutoff := uint8(opts.Threshold)
		out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
			// Already grayscale, so the red channel is a brightness proxy.
			if c.R > cutoff {
				return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			return color.NRGBA{R: 0, G: 0, B: 0, A: 255}
		})
	}

	if opts.Padding > 0 {
		bounds := out.Bounds()
		canvas := imaging.New(bounds.Dx()+2*opts.Padding, bounds.Dy()+2*opts.Padding, color.White)
		out = imaging.PasteCenter(canvas, out)
	}

	return out
}

// UnscaleRegion maps a region detected on a preprocessed image back into
// the coordinate space of the original capture, undoing scale and padding.
func UnscaleRegion(r TextRegion, opts PreprocessingOptions) TextRegion {
	opts = opts.Clamp()

	r.Bounds.X -= opts.Padding
	r.Bounds.Y -= opts.Padding

	if opts.ScaleFactor != 1.0 && opts.ScaleFactor > 0 {
		inv := 1.0 / opts.ScaleFactor
		r.Bounds.X = int(math.Round(float64(r.Bounds.X) * inv))
		r.Bounds.Y = int(math.Round(float64(r.Bounds.Y) * inv))
		r.Bounds.Width = int(math.Round(float64(r.Bounds.Width) * inv))
		r.Bounds.Height = int(math.Round(float64(r.Bounds.Height) * inv))
	}

	return r
}
