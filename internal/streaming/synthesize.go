package streaming

import "strings"

// PlaceholderContent is substituted when a turn produced no usable content
// and nothing could be recovered from the reasoning text.
const PlaceholderContent = "I was unable to articulate a response this turn; please weigh my earlier arguments."

var conversationalIndicators = []string{
	"i think", "i believe", "actually", "but ", "however", "really",
	"agree", "because", "therefore", "so ", "should", "clearly",
}

var opinionIndicators = []string{
	"opinion", "view", "stance", "perspective", "position", "judgment",
}

var metaPrefixes = []string{
	"thinking about it,", "on reflection,", "let me think.",
	"considering this,", "analyzing this,",
}

// SynthesizeContent recovers a visible response from reasoning text when a
// model emitted everything inside reasoning markers. Returns the recovered
// text and true, or ("", false) when the reasoning is too meta to reuse and
// the caller should fall back to PlaceholderContent.
func SynthesizeContent(reasoning string) (string, bool) {
	reasoning = strings.TrimSpace(reasoning)
	if reasoning == "" {
		return "", false
	}

	lower := strings.ToLower(reasoning)
	direct := strings.Contains(lower, "?") || containsAny(lower, conversationalIndicators) || containsAny(lower, opinionIndicators)
	if direct {
		response := reasoning
		if len(response) > 300 {
			sentences := strings.SplitN(response, ". ", 4)
			if len(sentences) > 3 {
				response = strings.Join(sentences[:3], ". ") + "."
			}
		}
		for _, phrase := range metaPrefixes {
			if strings.HasPrefix(strings.ToLower(response), phrase) {
				response = strings.TrimSpace(response[len(phrase):])
				response = strings.TrimPrefix(response, ",")
				response = strings.TrimSpace(response)
				break
			}
		}
		if response != "" {
			return response, true
		}
	}

	// Too meta to quote directly; salvage a keyword-anchored reply.
	if len(reasoning) > 50 {
		var keywords []string
		words := strings.Fields(reasoning)
		if len(words) > 20 {
			words = words[:20]
		}
		for _, w := range words {
			w = strings.Trim(w, ".,!?:;\"'")
			if len(w) > 3 && !containsAny(strings.ToLower(w), conversationalIndicators) {
				keywords = append(keywords, w)
				if len(keywords) >= 2 {
					break
				}
			}
		}
		if len(keywords) > 0 {
			return "There is an interesting point here. Considering " + strings.Join(keywords, " ") +
				", this is a more complex question than it first appears and deserves closer scrutiny.", true
		}
	}
	return "", false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
