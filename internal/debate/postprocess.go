package debate

import (
	"strings"
	"unicode"
)

var evidencePatterns = []string{
	"according to research", "the data shows", "statistically", "experts",
	"the report", "survey results", "experiments show", "analysis shows",
	"for example", "in fact", "specifically", "studies show",
}

var logicalConnectors = []string{
	"therefore", "because", "however", "moreover", "but", "on the other hand", "consequently",
}

var emphasisWords = []string{
	"surprisingly", "certainly", "clearly", "definitely", "absolutely",
}

// analysis holds the derived attributes of a finished turn.
type analysis struct {
	Text       string
	Evidence   []string
	Quality    float64
	Confidence float64
}

// analyzeResponse cleans a generated response and derives evidence,
// quality, and confidence from surface features. Fully deterministic.
func analyzeResponse(content string) analysis {
	text := strings.TrimSpace(content)
	lower := strings.ToLower(text)

	var evidence []string
	for _, sentence := range splitSentences(text) {
		sentenceLower := strings.ToLower(sentence)
		for _, pattern := range evidencePatterns {
			if strings.Contains(sentenceLower, pattern) {
				evidence = append(evidence, sentence)
				break
			}
		}
		if len(evidence) >= 3 {
			break
		}
	}

	quality := 0.5
	if len(text) >= 50 && len(text) <= 300 {
		quality += 0.1
	}
	for _, conn := range logicalConnectors {
		if strings.Contains(lower, conn) {
			quality += 0.1
			break
		}
	}
	if hasDigitOrUpper(text) {
		quality += 0.1
	}
	for _, w := range emphasisWords {
		if strings.Contains(lower, w) {
			quality += 0.05
			break
		}
	}
	if quality > 1.0 {
		quality = 1.0
	}

	confidence := quality
	if len(evidence) > 0 {
		confidence += 0.15
	}
	if len(text) > 100 {
		confidence += 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	return analysis{
		Text:       text,
		Evidence:   evidence,
		Quality:    quality,
		Confidence: confidence,
	}
}

func splitSentences(text string) []string {
	normalized := strings.NewReplacer("!", ".", "?", ".").Replace(text)
	var sentences []string
	for _, s := range strings.Split(normalized, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func hasDigitOrUpper(text string) bool {
	for _, r := range text {
		if unicode.IsDigit(r) || unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
