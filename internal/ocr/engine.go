package ocr

import (
	"context"
	"image"
)

// Engine is the live OCR engine the calibrator tunes. Implementations must
// keep DetectText side-effect-free except for the stored configuration, and
// configuration access must be safe for concurrent use: the calibrator
// snapshots the configuration before a run and restores it on any failure.
type Engine interface {
	// DetectText runs detection on img with the current configuration and
	// returns the regions whose confidence clears the configured threshold.
	DetectText(ctx context.Context, img image.Image) ([]TextRegion, error)

	// GetConfiguration returns a snapshot of the live configuration.
	GetConfiguration() EngineConfig

	// SetConfiguration replaces the live configuration. Values are clamped.
	SetConfiguration(cfg EngineConfig)
}
