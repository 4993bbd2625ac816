/**
 * Ground-Truth Extractor
 *
 * Combines the dominant-language heuristic, the AI vision client, and the
 * resilient parser into the extractor the calibration pipeline calls.
 * Nothing except transport faults is allowed past this boundary.
 */

package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/overlens/calibration-worker/internal/logging"
	"github.com/overlens/calibration-worker/internal/ocr"
)

// Backend prompts keyed by the dominant-language decision. Japanese UIs
// need the model told explicitly not to transliterate.
var promptsByLanguage = map[string]string{
	"en": "List every visible text element in this screenshot as a JSON array. " +
		"Each entry: {\"text\", \"x\", \"y\", \"width\", \"height\"} with pixel coordinates.",
	"ja": "このスクリーンショット内のすべてのテキスト要素をJSON配列で列挙してください。" +
		"各要素: {\"text\", \"x\", \"y\", \"width\", \"height\"}（ピクセル座標、テキストは原文のまま）。",
}

// Extractor supplies an independent, higher-trust set of detected text
// regions for a sample image.
type Extractor struct {
	client *Client
	logger *logging.Logger
}

// NewExtractor creates a ground-truth extractor over the given client.
func NewExtractor(client *Client) *Extractor {
	return &Extractor{
		client: client,
		logger: logging.NewLogger("GroundTruth"),
	}
}

// Extract returns the ground-truth regions for img. seedText (typically the
// concatenated baseline detection) drives the dominant-language decision
// that selects backend prompt and language hint. On unparseable output it
// returns an empty list; only transport faults surface as errors.
func (e *Extractor) Extract(ctx context.Context, img image.Image, seedText string) ([]ocr.TextRegion, error) {
	language := DominantLanguage(seedText)
	prompt := promptsByLanguage[language]

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode sample image: %w", err)
	}

	content, err := e.client.ExtractText(ctx, buf.Bytes(), language, prompt)
	if err != nil {
		return nil, err
	}

	regions := ParseRegions(content)
	if len(regions) == 0 {
		e.logger.Warn("No regions parseable from vision response",
			"language", language,
			"contentLength", len(content))
		return nil, nil
	}

	e.logger.Info("Ground truth extracted",
		"language", language,
		"regions", len(regions))

	return regions, nil
}
