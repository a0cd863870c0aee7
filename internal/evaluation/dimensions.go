package evaluation

// Dimension is one axis an argument is scored on.
type Dimension string

const (
	LogicalCoherence Dimension = "logical_coherence"
	EvidenceQuality  Dimension = "evidence_quality"
	Persuasiveness   Dimension = "persuasiveness"
	Relevance        Dimension = "relevance"
	Originality      Dimension = "originality"
	Clarity          Dimension = "clarity"
	FactualAccuracy  Dimension = "factual_accuracy"
	EmotionalAppeal  Dimension = "emotional_appeal"
)

// AllDimensions returns every dimension in scoring order.
func AllDimensions() []Dimension {
	return []Dimension{
		LogicalCoherence,
		EvidenceQuality,
		Persuasiveness,
		Relevance,
		Originality,
		Clarity,
		FactualAccuracy,
		EmotionalAppeal,
	}
}

// DimensionWeights returns the weight each dimension carries in the overall
// score. Coherence and relevance dominate; emotional appeal counts least.
func DimensionWeights() map[Dimension]float64 {
	return map[Dimension]float64{
		LogicalCoherence: 1.5,
		EvidenceQuality:  1.3,
		Persuasiveness:   1.2,
		Relevance:        1.4,
		Originality:      1.0,
		Clarity:          1.1,
		FactualAccuracy:  1.3,
		EmotionalAppeal:  0.8,
	}
}

// DimensionScore is the outcome of scoring one dimension. Score and
// Confidence are both in [0, 1].
type DimensionScore struct {
	Dimension  Dimension `json:"dimension"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
}

// Evaluation is the full assessment of a single argument.
type Evaluation struct {
	Scores       map[Dimension]DimensionScore `json:"scores"`
	OverallScore float64                      `json:"overall_score"`
	Strengths    []string                     `json:"strengths"`
	Weaknesses   []string                     `json:"weaknesses"`
	Suggestions  []string                     `json:"suggestions"`
}
