package debate

import (
	"sort"

	"github.com/debatearena/debatearena/internal/models"
)

const maxRelevantContext = 8

// selectRelevantContext picks the arguments an agent should see when
// composing its turn. Candidates are gathered in priority order: the
// immediately preceding argument, everything from the current round, the
// last two opposing arguments, the last two from teammates, the
// moderator's last remark, the tail of the previous round, and finally the
// two highest-quality arguments so far. Duplicate texts are skipped and
// the result is capped at maxRelevantContext.
func selectRelevantContext(history []*models.Argument, self *Agent) []*models.Argument {
	if len(history) == 0 {
		return nil
	}

	last := history[len(history)-1]
	currentRound := last.Round

	var currentRoundArgs []*models.Argument
	for _, arg := range history {
		if arg.Round == currentRound {
			currentRoundArgs = append(currentRoundArgs, arg)
		}
	}

	var previousRoundArgs []*models.Argument
	if currentRound > 1 {
		for _, arg := range history {
			if arg.Round == currentRound-1 {
				previousRoundArgs = append(previousRoundArgs, arg)
			}
		}
		previousRoundArgs = lastN(previousRoundArgs, 3)
	}

	var opposingArgs []*models.Argument
	for _, arg := range history {
		if arg.Stance != self.Stance && arg.Stance != models.StanceNeutral {
			opposingArgs = append(opposingArgs, arg)
		}
	}
	opposingArgs = lastN(opposingArgs, 2)

	var teamArgs []*models.Argument
	for _, arg := range history {
		if arg.Stance == self.Stance && arg.Speaker != self.Name {
			teamArgs = append(teamArgs, arg)
		}
	}
	teamArgs = lastN(teamArgs, 2)

	var moderatorArgs []*models.Argument
	for _, arg := range history {
		if arg.Stance == models.StanceNeutral {
			moderatorArgs = append(moderatorArgs, arg)
		}
	}
	moderatorArgs = lastN(moderatorArgs, 1)

	var highQuality []*models.Argument
	for _, arg := range history {
		if arg.QualityScore > 0.8 {
			highQuality = append(highQuality, arg)
		}
	}
	sort.SliceStable(highQuality, func(i, k int) bool {
		return highQuality[i].QualityScore > highQuality[k].QualityScore
	})
	if len(highQuality) > 2 {
		highQuality = highQuality[:2]
	}

	candidates := make([]*models.Argument, 0, len(history))
	candidates = append(candidates, last)
	candidates = append(candidates, currentRoundArgs...)
	candidates = append(candidates, opposingArgs...)
	candidates = append(candidates, teamArgs...)
	candidates = append(candidates, moderatorArgs...)
	candidates = append(candidates, previousRoundArgs...)
	candidates = append(candidates, highQuality...)

	seen := make(map[string]struct{}, maxRelevantContext)
	var relevant []*models.Argument
	for _, arg := range candidates {
		if _, dup := seen[arg.Text]; dup {
			continue
		}
		seen[arg.Text] = struct{}{}
		relevant = append(relevant, arg)
		if len(relevant) >= maxRelevantContext {
			break
		}
	}
	return relevant
}

func lastN(args []*models.Argument, n int) []*models.Argument {
	if len(args) <= n {
		return args
	}
	return args[len(args)-n:]
}
