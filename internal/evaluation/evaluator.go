package evaluation

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/models"
)

var (
	logicalFallacies = map[string]*regexp.Regexp{
		"ad_hominem":           regexp.MustCompile(`(?i)\byou(?:'re| are)?\b.*\b(wrong|lying|biased)\b`),
		"strawman":             regexp.MustCompile(`(?i)\b(completely different|unrelated)\b.*\b(claim|argument)\b`),
		"false_dilemma":        regexp.MustCompile(`(?i)\b(either|only)\b.*\bor else\b`),
		"hasty_generalization": regexp.MustCompile(`(?i)\b(all|every|always|never|absolutely)\b`),
	}

	strongArgumentPatterns = map[string]*regexp.Regexp{
		"evidence_based":    regexp.MustCompile(`(?i)\b(research|stud(?:y|ies)|data|statistics|experiments?)\b.*\b(show|shows|suggest|indicate|according)\b`),
		"logical_structure": regexp.MustCompile(`(?i)\b(first|second|third|finally|therefore|in conclusion)\b`),
		"counterargument":   regexp.MustCompile(`(?i)\b(although|while|granted)\b.*\b(admit|concede|acknowledge|still)\b`),
		"specific_example":  regexp.MustCompile(`(?i)\b(for example|for instance|specifically|in practice)\b`),
	}

	persuasiveElements = map[string]*regexp.Regexp{
		"emotional_appeal":    regexp.MustCompile(`(?i)\b(we|together|everyone|hope|future|values)\b`),
		"call_to_action":      regexp.MustCompile(`(?i)\b(must|need|important|urgent|essential)\b`),
		"rhetorical_question": regexp.MustCompile(`\?`),
		"strong_conclusion":   regexp.MustCompile(`(?i)\b(therefore|in conclusion|clearly|evidently)\b`),
	}

	evidenceMention   = regexp.MustCompile(`(?i)\b(research|stud(?:y|ies)|data|statistics|experiments?)\b.*\b(show|shows|suggest|indicate|according)\b`)
	structureMarkers  = regexp.MustCompile(`(?i)(\bfirst\b|\bsecond\b|\bthird\b|\d+\.|-\s)`)
	concreteFigures   = regexp.MustCompile(`\d+%|\d+ (people|years|cases)`)
	technicalTermExpr = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)
)

var (
	qualityKeywords        = []string{"research", "paper", "statistics", "data", "expert", "institute"}
	newPerspectiveKeywords = []string{"new", "different", "innovative", "unique", "novel"}
	certaintyWords         = []string{"certainly", "definitely", "absolutely", "100%", "all"}
	uncertaintyWords       = []string{"perhaps", "presumably", "it seems", "possibly", "likely"}
	positiveWords          = []string{"hope", "joy", "love", "passion", "dream", "future", "together"}
	negativeWords          = []string{"fear", "danger", "worry", "crisis", "failure", "suffering"}
	empathyWords           = []string{"we", "together", "everyone", "empathy", "understand"}
	affirmationWord        = "is"
	negationWord           = "is not"
)

type scoreFunc func(arg *models.Argument, context []*models.Argument, topic string) DimensionScore

// Evaluator scores arguments on the eight dimensions with deterministic
// text heuristics. Same inputs always produce the same evaluation; results
// are cached per (speaker, round, text, context texts, topic). Safe for
// concurrent use.
type Evaluator struct {
	dimensions []Dimension
	scorers    map[Dimension]scoreFunc
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[uint64]*Evaluation
}

// NewEvaluator builds an evaluator covering all dimensions.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		dimensions: AllDimensions(),
		logger:     logger,
		cache:      make(map[uint64]*Evaluation),
	}
	e.scorers = map[Dimension]scoreFunc{
		LogicalCoherence: e.scoreLogicalCoherence,
		EvidenceQuality:  e.scoreEvidenceQuality,
		Persuasiveness:   e.scorePersuasiveness,
		Relevance:        e.scoreRelevance,
		Originality:      e.scoreOriginality,
		Clarity:          e.scoreClarity,
		FactualAccuracy:  e.scoreFactualAccuracy,
		EmotionalAppeal:  e.scoreEmotionalAppeal,
	}
	return e
}

// Evaluate scores one argument against the debate so far.
func (e *Evaluator) Evaluate(arg *models.Argument, context []*models.Argument, topic string) *Evaluation {
	key := cacheKey(arg, context, topic)
	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		e.logger.Debug("evaluation cache hit", zap.String("speaker", arg.Speaker))
		return cached
	}
	e.mu.Unlock()

	scores := make(map[Dimension]DimensionScore, len(e.dimensions))
	for _, dim := range e.dimensions {
		scores[dim] = e.scorers[dim](arg, context, topic)
	}

	weights := DimensionWeights()
	var weighted, totalWeight float64
	for _, dim := range e.dimensions {
		w := weights[dim]
		weighted += scores[dim].Score * w
		totalWeight += w
	}

	eval := &Evaluation{
		Scores:       scores,
		OverallScore: weighted / totalWeight,
	}
	eval.Strengths, eval.Weaknesses = analyzeStrengthsWeaknesses(e.dimensions, scores)
	eval.Suggestions = improvementSuggestions(e.dimensions, scores)

	e.mu.Lock()
	e.cache[key] = eval
	e.mu.Unlock()
	return eval
}

// cacheKey covers everything the scorers read: three dimensions consult the
// surrounding context, so it is part of the key.
func cacheKey(arg *models.Argument, context []*models.Argument, topic string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(arg.Speaker)
	_, _ = h.WriteString("\x00")
	_, _ = fmt.Fprintf(h, "%d", arg.Round)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(arg.Text)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(topic)
	for _, prev := range context {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(prev.Speaker)
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(prev.Text)
	}
	return h.Sum64()
}

func (e *Evaluator) scoreLogicalCoherence(arg *models.Argument, context []*models.Argument, _ string) DimensionScore {
	score := 0.8
	var issues []string
	for _, name := range sortedKeys(logicalFallacies) {
		if logicalFallacies[name].MatchString(arg.Text) {
			score -= 0.2
			issues = append(issues, name)
		}
	}

	structure := 0.0
	for _, name := range sortedKeys(strongArgumentPatterns) {
		if strongArgumentPatterns[name].MatchString(arg.Text) {
			structure += 0.1
		}
	}
	score = clamp(score + structure)

	var ownHistory []*models.Argument
	for _, prev := range context {
		if prev.Speaker == arg.Speaker {
			ownHistory = append(ownHistory, prev)
		}
	}
	if len(ownHistory) > 0 {
		score *= contradictionFactor(arg, ownHistory)
	}

	rationale := fmt.Sprintf("structure bonus %.2f", structure)
	if len(issues) > 0 {
		rationale += ", fallacies: " + strings.Join(issues, ", ")
	}
	return DimensionScore{LogicalCoherence, clamp(score), 0.7, rationale}
}

func (e *Evaluator) scoreEvidenceQuality(arg *models.Argument, _ []*models.Argument, _ string) DimensionScore {
	if len(arg.Evidence) > 0 {
		score := math.Min(0.6+float64(len(arg.Evidence))*0.1, 0.9)
		quality := 0.0
		for _, ev := range arg.Evidence {
			lower := strings.ToLower(ev)
			for _, kw := range qualityKeywords {
				if strings.Contains(lower, kw) {
					quality += 0.05
				}
			}
		}
		score = math.Min(score+quality, 1.0)
		rationale := fmt.Sprintf("%d evidence items, quality bonus %.2f", len(arg.Evidence), quality)
		return DimensionScore{EvidenceQuality, score, 0.8, rationale}
	}
	if evidenceMention.MatchString(arg.Text) {
		return DimensionScore{EvidenceQuality, 0.5, 0.8, "evidence mentioned without a concrete source"}
	}
	return DimensionScore{EvidenceQuality, 0.3, 0.8, "no evidence"}
}

func (e *Evaluator) scorePersuasiveness(arg *models.Argument, _ []*models.Argument, _ string) DimensionScore {
	score := 0.6
	elements := 0
	for _, name := range sortedKeys(persuasiveElements) {
		if persuasiveElements[name].MatchString(arg.Text) {
			elements++
		}
	}
	score = math.Min(score+float64(elements)*0.15, 1.0)

	wordCount := len(strings.Fields(arg.Text))
	if wordCount > 50 && wordCount < 200 {
		score = math.Min(score+0.1, 1.0)
	}
	rationale := fmt.Sprintf("%d persuasive elements, %d words", elements, wordCount)
	return DimensionScore{Persuasiveness, score, 0.6, rationale}
}

func (e *Evaluator) scoreRelevance(arg *models.Argument, context []*models.Argument, topic string) DimensionScore {
	topicKeywords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if !isStopword(w) {
			topicKeywords[w] = struct{}{}
		}
	}

	words := strings.Fields(strings.ToLower(arg.Text))
	matches := 0
	for _, w := range words {
		if _, ok := topicKeywords[w]; ok {
			matches++
		}
	}
	total := len(words)
	if total == 0 {
		total = 1
	}
	score := math.Min(0.3+(float64(matches)/float64(total))*10, 1.0)

	rationale := fmt.Sprintf("%d topic keyword matches", matches)
	if len(context) > 0 && isDirectResponse(arg, context[len(context)-1]) {
		score = math.Min(score+0.2, 1.0)
		rationale += ", direct response"
	}
	return DimensionScore{Relevance, score, 0.7, rationale}
}

func (e *Evaluator) scoreOriginality(arg *models.Argument, context []*models.Argument, _ string) DimensionScore {
	if len(context) == 0 {
		return DimensionScore{Originality, 0.7, 0.5, "first argument"}
	}

	maxSimilarity := 0.0
	for _, prev := range context {
		if s := jaccardSimilarity(arg.Text, prev.Text); s > maxSimilarity {
			maxSimilarity = s
		}
	}
	score := 1.0 - maxSimilarity*0.7

	fresh := false
	lower := strings.ToLower(arg.Text)
	for _, kw := range newPerspectiveKeywords {
		if strings.Contains(lower, kw) {
			score = math.Min(score+0.1, 1.0)
			fresh = true
			break
		}
	}
	rationale := fmt.Sprintf("max similarity %.2f, fresh perspective: %t", maxSimilarity, fresh)
	return DimensionScore{Originality, clamp(score), 0.5, rationale}
}

func (e *Evaluator) scoreClarity(arg *models.Argument, _ []*models.Argument, _ string) DimensionScore {
	score := 0.7

	var lengths []int
	for _, s := range strings.Split(arg.Text, ".") {
		if strings.TrimSpace(s) != "" {
			lengths = append(lengths, len(strings.Fields(s)))
		}
	}
	avg := 0.0
	if len(lengths) > 0 {
		sum := 0
		for _, l := range lengths {
			sum += l
		}
		avg = float64(sum) / float64(len(lengths))
	}
	if avg >= 10 && avg <= 25 {
		score += 0.2
	} else if avg > 40 {
		score -= 0.2
	}

	totalWords := len(strings.Fields(arg.Text))
	if totalWords == 0 {
		totalWords = 1
	}
	technicalRatio := float64(len(technicalTermExpr.FindAllString(arg.Text, -1))) / float64(totalWords)
	if technicalRatio < 0.2 {
		score = math.Min(score+0.1, 1.0)
	}
	if structureMarkers.MatchString(arg.Text) {
		score = math.Min(score+0.1, 1.0)
	}

	rationale := fmt.Sprintf("avg sentence %.1f words, technical ratio %.2f", avg, technicalRatio)
	return DimensionScore{Clarity, clamp(score), 0.8, rationale}
}

func (e *Evaluator) scoreFactualAccuracy(arg *models.Argument, _ []*models.Argument, _ string) DimensionScore {
	score := 0.7
	lower := strings.ToLower(arg.Text)

	certainty := 0
	for _, w := range certaintyWords {
		if strings.Contains(lower, w) {
			certainty++
		}
	}
	uncertainty := 0
	for _, w := range uncertaintyWords {
		if strings.Contains(lower, w) {
			uncertainty++
		}
	}

	var rationale string
	switch {
	case certainty > 3:
		score -= 0.2
		rationale = "overconfident phrasing"
	case uncertainty > 0:
		score += 0.1
		rationale = "acknowledges uncertainty"
	default:
		rationale = "neutral phrasing"
	}

	if concreteFigures.MatchString(arg.Text) {
		score = math.Min(score+0.1, 1.0)
		rationale += ", cites concrete figures"
	}
	// Heuristic only; confidence stays low without real fact checking.
	return DimensionScore{FactualAccuracy, clamp(score), 0.4, rationale}
}

func (e *Evaluator) scoreEmotionalAppeal(arg *models.Argument, _ []*models.Argument, _ string) DimensionScore {
	lower := strings.ToLower(arg.Text)
	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}
	positive := count(positiveWords)
	negative := count(negativeWords)
	empathy := count(empathyWords)

	score := 0.5
	total := positive + negative + empathy
	if total > 0 {
		score = math.Min(0.5+float64(total)*0.1, 0.9)
		if positive > 0 && empathy > 0 {
			score = math.Min(score+0.1, 1.0)
		}
	}
	rationale := fmt.Sprintf("%d emotional markers (positive %d, empathy %d)", total, positive, empathy)
	return DimensionScore{EmotionalAppeal, score, 0.6, rationale}
}

func contradictionFactor(current *models.Argument, history []*models.Argument) float64 {
	factor := 1.0
	curr := strings.ToLower(current.Text)
	for _, prev := range history {
		prevText := strings.ToLower(prev.Text)
		if (strings.Contains(curr, negationWord) && strings.Contains(prevText, affirmationWord) && !strings.Contains(prevText, negationWord)) ||
			(strings.Contains(prevText, negationWord) && strings.Contains(curr, affirmationWord) && !strings.Contains(curr, negationWord)) {
			factor *= 0.8
		}
	}
	return factor
}

func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	union := len(setB)
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// isDirectResponse reports whether current engages the previous speaker's
// opening keywords rather than talking past them.
func isDirectResponse(current, previous *models.Argument) bool {
	prevWords := strings.Fields(strings.ToLower(previous.Text))
	if len(prevWords) > 10 {
		prevWords = prevWords[:10]
	}
	prevSet := make(map[string]struct{}, len(prevWords))
	for _, w := range prevWords {
		prevSet[w] = struct{}{}
	}
	overlap := 0
	for w := range wordSet(current.Text) {
		if _, ok := prevSet[w]; ok {
			overlap++
		}
	}
	return overlap >= 3
}

func analyzeStrengthsWeaknesses(dims []Dimension, scores map[Dimension]DimensionScore) (strengths, weaknesses []string) {
	for _, dim := range dims {
		s := scores[dim]
		switch {
		case s.Score >= 0.8:
			strengths = append(strengths, fmt.Sprintf("%s: %s", dim, s.Rationale))
		case s.Score <= 0.4:
			weaknesses = append(weaknesses, fmt.Sprintf("%s: %s", dim, s.Rationale))
		}
	}
	return strengths, weaknesses
}

func improvementSuggestions(dims []Dimension, scores map[Dimension]DimensionScore) []string {
	advice := map[Dimension]string{
		EvidenceQuality:  "Cite more evidence with concrete sources.",
		LogicalCoherence: "Tighten the logical structure and connect premises to the conclusion.",
		Clarity:          "Shorten sentences and cut jargon.",
		Relevance:        "Focus on points that bear directly on the topic.",
		Originality:      "Offer a perspective that departs from earlier arguments.",
	}
	var suggestions []string
	for _, dim := range dims {
		if scores[dim].Score < 0.5 {
			if tip, ok := advice[dim]; ok {
				suggestions = append(suggestions, tip)
			}
		}
	}
	return suggestions
}

func sortedKeys(m map[string]*regexp.Regexp) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isStopword(w string) bool {
	switch w {
	case "the", "a", "an", "is", "are", "of", "to", "in", "for", "and", "or":
		return true
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
