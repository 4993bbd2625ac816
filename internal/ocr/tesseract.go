/**
 * Tesseract engine adapter
 *
 * Wraps gosseract behind the Engine interface. Each detection runs the
 * configured preprocessing pipeline, encodes the result to PNG, and asks
 * Tesseract for word-level bounding boxes.
 */

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine is a live OCR engine backed by a local Tesseract install.
type TesseractEngine struct {
	languages []string

	mu  sync.RWMutex
	cfg EngineConfig
}

// TesseractOptions holds adapter construction options
type TesseractOptions struct {
	// Languages passed to Tesseract, e.g. ["eng","jpn"]. Defaults to eng.
	Languages []string
}

// NewTesseractEngine creates a Tesseract-backed engine with the default
// configuration.
func NewTesseractEngine(opts *TesseractOptions) *TesseractEngine {
	langs := []string{"eng"}
	if opts != nil && len(opts.Languages) > 0 {
		langs = opts.Languages
	}

	return &TesseractEngine{
		languages: langs,
		cfg:       DefaultConfig(),
	}
}

// GetConfiguration returns a snapshot of the live configuration.
func (e *TesseractEngine) GetConfiguration() EngineConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetConfiguration replaces the live configuration.
func (e *TesseractEngine) SetConfiguration(cfg EngineConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg.Clamp()
}

// DetectText preprocesses img with the current configuration, runs
// word-level detection, and returns regions above the confidence threshold
// mapped back into the original capture's coordinate space.
func (e *TesseractEngine) DetectText(ctx context.Context, img image.Image) ([]TextRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := e.GetConfiguration()
	processed := Preprocess(img, cfg.Preprocessing)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}

	// Screen captures are sparse text, not document pages.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract detection failed: %w", err)
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}

		confidence := box.Confidence / 100.0
		if confidence < cfg.ConfidenceThreshold {
			continue
		}

		region := TextRegion{
			Text: text,
			Bounds: Rect{
				X:      box.Box.Min.X,
				Y:      box.Box.Min.Y,
				Width:  box.Box.Dx(),
				Height: box.Box.Dy(),
			},
			Confidence: confidence,
		}
		regions = append(regions, UnscaleRegion(region, cfg.Preprocessing))
	}

	return regions, nil
}
