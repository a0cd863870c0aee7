package evaluation

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/models"
)

// Verdict is the outcome of judging a finished debate.
type Verdict struct {
	Winner        models.Stance      `json:"winner"` // StanceSupport, StanceOppose, or StanceNeutral for a draw
	SupportScores map[string]float64 `json:"support_scores"`
	OpposeScores  map[string]float64 `json:"oppose_scores"`
	Analysis      []string           `json:"analysis"`
	SupportEvals  []*Evaluation      `json:"-"`
	OpposeEvals   []*Evaluation      `json:"-"`
}

const overallKey = "overall"

// Judge scores whole teams and picks a winner.
type Judge struct {
	evaluator *Evaluator
	logger    *zap.Logger
}

// NewJudge wraps an evaluator for team judging.
func NewJudge(evaluator *Evaluator, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{evaluator: evaluator, logger: logger}
}

// JudgeDebate evaluates every argument of both teams against the full
// chronological record and aggregates per-dimension team means. The overall
// mean decides the winner; on an exact tie, the team leading in more
// dimensions wins, and a second tie is a draw.
func (j *Judge) JudgeDebate(support, oppose []*models.Argument, topic string) *Verdict {
	all := make([]*models.Argument, 0, len(support)+len(oppose))
	all = append(all, support...)
	all = append(all, oppose...)
	sort.SliceStable(all, func(i, k int) bool { return all[i].Round < all[k].Round })

	supportEvals := make([]*Evaluation, 0, len(support))
	for _, arg := range support {
		supportEvals = append(supportEvals, j.evaluator.Evaluate(arg, all, topic))
	}
	opposeEvals := make([]*Evaluation, 0, len(oppose))
	for _, arg := range oppose {
		opposeEvals = append(opposeEvals, j.evaluator.Evaluate(arg, all, topic))
	}

	verdict := &Verdict{
		SupportScores: aggregateTeamScores(supportEvals),
		OpposeScores:  aggregateTeamScores(opposeEvals),
		SupportEvals:  supportEvals,
		OpposeEvals:   opposeEvals,
	}
	verdict.Winner = determineWinner(verdict.SupportScores, verdict.OpposeScores)
	verdict.Analysis = detailedAnalysis(verdict.SupportScores, verdict.OpposeScores)

	j.logger.Info("debate judged",
		zap.String("winner", string(verdict.Winner)),
		zap.Float64("support_overall", verdict.SupportScores[overallKey]),
		zap.Float64("oppose_overall", verdict.OpposeScores[overallKey]),
	)
	return verdict
}

func aggregateTeamScores(evals []*Evaluation) map[string]float64 {
	aggregated := make(map[string]float64, len(AllDimensions())+1)
	if len(evals) == 0 {
		for _, dim := range AllDimensions() {
			aggregated[string(dim)] = 0
		}
		aggregated[overallKey] = 0
		return aggregated
	}

	for _, dim := range AllDimensions() {
		sum := 0.0
		for _, eval := range evals {
			sum += eval.Scores[dim].Score
		}
		aggregated[string(dim)] = sum / float64(len(evals))
	}

	overall := 0.0
	for _, eval := range evals {
		overall += eval.OverallScore
	}
	aggregated[overallKey] = overall / float64(len(evals))
	return aggregated
}

func determineWinner(supportScores, opposeScores map[string]float64) models.Stance {
	switch {
	case supportScores[overallKey] > opposeScores[overallKey]:
		return models.StanceSupport
	case opposeScores[overallKey] > supportScores[overallKey]:
		return models.StanceOppose
	}

	supportWins, opposeWins := 0, 0
	for _, dim := range AllDimensions() {
		key := string(dim)
		switch {
		case supportScores[key] > opposeScores[key]:
			supportWins++
		case opposeScores[key] > supportScores[key]:
			opposeWins++
		}
	}
	switch {
	case supportWins > opposeWins:
		return models.StanceSupport
	case opposeWins > supportWins:
		return models.StanceOppose
	}
	return models.StanceNeutral
}

func detailedAnalysis(supportScores, opposeScores map[string]float64) []string {
	var analysis []string
	for _, dim := range AllDimensions() {
		key := string(dim)
		diff := supportScores[key] - opposeScores[key]
		switch {
		case diff > 0.05:
			analysis = append(analysis, fmt.Sprintf("support leads on %s (%.2f vs %.2f)", key, supportScores[key], opposeScores[key]))
		case diff < -0.05:
			analysis = append(analysis, fmt.Sprintf("oppose leads on %s (%.2f vs %.2f)", key, opposeScores[key], supportScores[key]))
		}
		if supportScores[key] < 0.5 && opposeScores[key] < 0.5 {
			analysis = append(analysis, fmt.Sprintf("both teams scored low on %s", key))
		}
	}
	return analysis
}
