/**
 * Resilient region parsing
 *
 * The vision backend answers in natural language that usually, but not
 * always, embeds a JSON array of regions. Parsing is an ordered list of
 * pure strategies combined first-success-wins; when every strategy fails
 * the extractor treats the response as "AI found nothing" rather than a
 * fault.
 */

package vision

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/overlens/calibration-worker/internal/ocr"
)

// defaultRegionConfidence is assumed when the backend omits per-region
// confidence, which most models do. Ground truth is the higher-trust
// detection, so the assumed score is high.
const defaultRegionConfidence = 0.9

type parseStrategy func(string) ([]ocr.TextRegion, bool)

var strategies = []parseStrategy{
	parseDirectArray,
	parseTaggedFence,
	parseAnyFence,
	parseBalancedSpan,
	parseLinePattern,
}

// ParseRegions extracts text regions from a raw model response. Strategies
// are attempted in order until one yields a non-empty, syntactically valid
// result; if all fail it returns an empty list, never an error.
func ParseRegions(content string) []ocr.TextRegion {
	for _, strategy := range strategies {
		if regions, ok := strategy(content); ok && len(regions) > 0 {
			return regions
		}
	}
	return nil
}

// regionPayload tolerates both the flat and the nested bounds shape the
// backend has produced over time.
type regionPayload struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Bounds     *struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"bounds"`
}

func (p regionPayload) toRegion() (ocr.TextRegion, bool) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return ocr.TextRegion{}, false
	}

	bounds := ocr.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
	if p.Bounds != nil {
		bounds = ocr.Rect{X: p.Bounds.X, Y: p.Bounds.Y, Width: p.Bounds.Width, Height: p.Bounds.Height}
	}

	confidence := p.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = defaultRegionConfidence
	}

	return ocr.TextRegion{Text: text, Bounds: bounds, Confidence: confidence}, true
}

// decodeRegions parses data as either a JSON array of regions or a single
// region object.
func decodeRegions(data string) ([]ocr.TextRegion, bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, false
	}

	var payloads []regionPayload
	if strings.HasPrefix(data, "{") {
		var single regionPayload
		if err := json.Unmarshal([]byte(data), &single); err != nil {
			return nil, false
		}
		payloads = []regionPayload{single}
	} else {
		if err := json.Unmarshal([]byte(data), &payloads); err != nil {
			return nil, false
		}
	}

	regions := make([]ocr.TextRegion, 0, len(payloads))
	for _, p := range payloads {
		if region, ok := p.toRegion(); ok {
			regions = append(regions, region)
		}
	}
	return regions, true
}

// Strategy 1: the whole response is a top-level JSON array.
func parseDirectArray(content string) ([]ocr.TextRegion, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	return decodeRegions(trimmed)
}

var taggedFenceRe = regexp.MustCompile("(?s)```(?:json|JSON)\\s*\n(.*?)```")

// Strategy 2: a language-tagged fenced code block containing JSON. Models
// sometimes emit an empty illustrative block before the real one, so every
// tagged fence is tried.
func parseTaggedFence(content string) ([]ocr.TextRegion, bool) {
	for _, match := range taggedFenceRe.FindAllStringSubmatch(content, -1) {
		if regions, ok := decodeRegions(match[1]); ok && len(regions) > 0 {
			return regions, true
		}
	}
	return nil, false
}

var anyFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n?(.*?)```")

// Strategy 3: any fenced block whose body looks array- or object-shaped.
func parseAnyFence(content string) ([]ocr.TextRegion, bool) {
	for _, match := range anyFenceRe.FindAllStringSubmatch(content, -1) {
		body := strings.TrimSpace(match[1])
		if strings.HasPrefix(body, "[") || strings.HasPrefix(body, "{") {
			// A decodable but empty block counts as a miss; a later
			// block may carry the regions.
			if regions, ok := decodeRegions(body); ok && len(regions) > 0 {
				return regions, true
			}
		}
	}
	return nil, false
}

// Strategy 4: a balanced bracket span anywhere in the text. Spans that
// decode to nothing do not stop the scan.
func parseBalancedSpan(content string) ([]ocr.TextRegion, bool) {
	start := strings.IndexByte(content, '[')
	for start >= 0 {
		if end := matchBracket(content, start); end > start {
			if regions, ok := decodeRegions(content[start : end+1]); ok && len(regions) > 0 {
				return regions, true
			}
		}
		next := strings.IndexByte(content[start+1:], '[')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return nil, false
}

// matchBracket returns the index of the ']' balancing the '[' at start,
// skipping brackets inside JSON strings, or -1 when unbalanced.
func matchBracket(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var lineRe = regexp.MustCompile(`(?i)text:\s*"?([^"\n]+?)"?\s*[,;]?\s*position:\s*\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)(?:[^\n]*?confidence[:=\s]+([0-9]*\.?[0-9]+))?`)

// Strategy 5: line-based fallback matching the natural-language
// `text: ... position: (x, y, w, h)` convention.
func parseLinePattern(content string) ([]ocr.TextRegion, bool) {
	matches := lineRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil, false
	}

	regions := make([]ocr.TextRegion, 0, len(matches))
	for _, m := range matches {
		text := strings.TrimSpace(m[1])
		if text == "" {
			continue
		}
		x, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		w, _ := strconv.Atoi(m[4])
		h, _ := strconv.Atoi(m[5])

		confidence := defaultRegionConfidence
		if m[6] != "" {
			if parsed, err := strconv.ParseFloat(m[6], 64); err == nil && parsed > 0 && parsed <= 1 {
				confidence = parsed
			}
		}

		regions = append(regions, ocr.TextRegion{
			Text:       text,
			Bounds:     ocr.Rect{X: x, Y: y, Width: w, Height: h},
			Confidence: confidence,
		})
	}
	return regions, len(regions) > 0
}
