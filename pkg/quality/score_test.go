package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePages_FullTextManyPages(t *testing.T) {
	pages := make([]PageText, 8)
	for i := range pages {
		pages[i] = PageText{PageNumber: i + 1, Text: strings.Repeat("eligible subjects must be adults ", 5)}
	}

	score := ScorePages(pages)

	assert.Equal(t, 8, score.PageCount)
	assert.Equal(t, 1.0, score.TextExtractability)
	assert.Equal(t, 1.0, score.PageCountSufficient)
	assert.Equal(t, 1.0, score.EncodingBonus)
	assert.InDelta(t, 1.0, score.Value, 0.001)
}

func TestScorePages_EmptyPDF(t *testing.T) {
	score := ScorePages(nil)

	assert.Equal(t, 0, score.PageCount)
	assert.Equal(t, 0.0, score.Value)
}

func TestScorePages_ScannedImageNoTextLayer(t *testing.T) {
	pages := []PageText{
		{PageNumber: 1, Text: ""},
		{PageNumber: 2, Text: "   "},
		{PageNumber: 3, Text: ""},
	}

	score := ScorePages(pages)

	assert.Equal(t, 0.0, score.TextExtractability)
	assert.Less(t, score.Value, 0.15)
}

func TestScorePages_FewPagesScoresLowerOnCountSufficiency(t *testing.T) {
	pages := []PageText{
		{PageNumber: 1, Text: strings.Repeat("short protocol text ", 5)},
	}

	score := ScorePages(pages)

	assert.InDelta(t, 0.2, score.PageCountSufficient, 0.001)
}

func TestScorePages_ReplacementCharactersReduceEncodingBonus(t *testing.T) {
	pages := []PageText{
		{PageNumber: 1, Text: strings.Repeat("normal text here ", 5)},
		{PageNumber: 2, Text: strings.Repeat("broken � encoding � here ", 5)},
	}

	score := ScorePages(pages)

	assert.Equal(t, 0.5, score.EncodingBonus)
}
