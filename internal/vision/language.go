package vision

import "unicode"

// dominantRatio is the share of Japanese/CJK code points above which a text
// sample is treated as Japanese-dominant.
const dominantRatio = 0.15

// DominantLanguage classifies a text sample by character-class ratio:
// Hiragana, Katakana, and CJK unified ideographs counted against all
// non-space characters. Returns "ja" when the ratio reaches the threshold,
// "en" otherwise (including for empty samples).
func DominantLanguage(sample string) string {
	var total, japanese int
	for _, r := range sample {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isJapanese(r) {
			japanese++
		}
	}

	if total == 0 {
		return "en"
	}
	if float64(japanese)/float64(total) >= dominantRatio {
		return "ja"
	}
	return "en"
}

func isJapanese(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	}
	return false
}
