package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDominantLanguage(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   string
	}{
		{"empty", "", "en"},
		{"whitespace only", "   \t\n", "en"},
		{"plain english", "File Edit View Help", "en"},
		{"pure hiragana", "こんにちは", "ja"},
		{"pure katakana", "ファイル", "ja"},
		{"kanji", "設定", "ja"},
		{"mixed ui above threshold", "設定 Settings メニュー", "ja"},
		{"short ascii with kanji at threshold", "Save 設", "ja"},
		{"mostly ascii below threshold", "Save the file 設", "en"},
		{"digits and punctuation", "2024-08-31 12:00", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DominantLanguage(tt.sample))
		})
	}
}
