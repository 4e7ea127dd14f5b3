package extract

import (
	"strings"
	"unicode"
)

// contractKeywords are markers that extracted text actually came from a
// contract body rather than PDF structure noise.
var contractKeywords = []string{"agreement", "contract", "signature", "payment", "terms"}

const (
	keywordBonus         = 100
	specialCharThreshold = 0.3
	specialCharPenalty   = 0.5
)

// scoreText rates extraction quality. Longer text scores higher, each
// contract keyword present adds a flat bonus, and a high ratio of
// non-alphanumeric characters halves the score.
func scoreText(text string) float64 {
	if text == "" {
		return 0
	}

	score := float64(len(text))

	lower := strings.ToLower(text)
	for _, kw := range contractKeywords {
		if strings.Contains(lower, kw) {
			score += keywordBonus
		}
	}

	var special, total int
	for _, r := range text {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	if float64(special)/float64(total) > specialCharThreshold {
		score *= specialCharPenalty
	}

	return score
}
