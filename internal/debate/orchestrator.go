package debate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/debatearena/debatearena/internal/evaluation"
	"github.com/debatearena/debatearena/internal/events"
	"github.com/debatearena/debatearena/internal/llm"
	"github.com/debatearena/debatearena/internal/metrics"
	"github.com/debatearena/debatearena/internal/models"
)

// Orchestrator defaults.
const (
	DefaultRounds       = 5
	DefaultTurnTimeout  = 30 * time.Second
	DefaultHistoryLimit = 200
)

// OrchestratorConfig describes one debate to run.
type OrchestratorConfig struct {
	SessionID    string
	Topic        string
	Rounds       int
	TurnTimeout  time.Duration
	HistoryLimit int
	Retry        *llm.RetryConfig
	Debaters     []*Agent
	Moderator    *Agent
	Seed         int64 // deterministic turn order when non-zero
}

// Result is the final outcome of a debate.
type Result struct {
	SessionID string              `json:"session_id"`
	Topic     string              `json:"topic"`
	Rounds    int                 `json:"rounds"`
	Winner    models.Stance       `json:"winner"`
	Verdict   *evaluation.Verdict `json:"verdict"`
	Arguments []*models.Argument  `json:"arguments"`
}

// RoundPayload marks a round boundary event.
type RoundPayload struct {
	Round int `json:"round"`
}

// StartPayload announces a new debate.
type StartPayload struct {
	Topic    string   `json:"topic"`
	Rounds   int      `json:"rounds"`
	Speakers []string `json:"speakers"`
}

// ArgumentPayload carries a finished argument with its evaluation.
type ArgumentPayload struct {
	Argument   *models.Argument       `json:"argument"`
	Evaluation *evaluation.Evaluation `json:"evaluation,omitempty"`
}

// CompletePayload closes a debate.
type CompletePayload struct {
	Winner       models.Stance `json:"winner"`
	SupportScore float64       `json:"support_score"`
	OpposeScore  float64       `json:"oppose_score"`
}

// Orchestrator runs one debate end to end: the moderator opens, agents
// take shuffled turns each round with the moderator interjecting and
// summarizing, and a deterministic judge closes the session. All events
// flow through the session broadcaster. Run is single-shot and owns the
// debate history exclusively.
type Orchestrator struct {
	sessionID   string
	topic       string
	rounds      int
	turnTimeout time.Duration
	retry       llm.RetryConfig
	debaters    []*Agent
	moderator   *Agent
	generator   Generator
	evaluator   *evaluation.Evaluator
	judge       *evaluation.Judge
	broadcaster *events.Broadcaster
	history     *models.DebateHistory
	rng         *rand.Rand
	logger      *zap.Logger
}

// NewOrchestrator validates the configuration and wires a debate together.
func NewOrchestrator(cfg *OrchestratorConfig, generator Generator, broadcaster *events.Broadcaster, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("orchestrator config is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("debate topic is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var support, oppose int
	for _, agent := range cfg.Debaters {
		if err := agent.Validate(); err != nil {
			return nil, err
		}
		switch agent.Stance {
		case models.StanceSupport:
			support++
		case models.StanceOppose:
			oppose++
		default:
			return nil, fmt.Errorf("debater %s must take a side", agent.Name)
		}
	}
	if support == 0 || oppose == 0 {
		return nil, fmt.Errorf("debate needs at least one supporter and one opponent")
	}

	moderator := cfg.Moderator
	if moderator == nil {
		moderator = &Agent{
			Name:        "Moderator",
			Role:        models.RoleModerator,
			Stance:      models.StanceNeutral,
			Model:       cfg.Debaters[0].Model,
			Temperature: 0.7,
		}
	} else if err := moderator.Validate(); err != nil {
		return nil, err
	}

	rounds := cfg.Rounds
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	turnTimeout := cfg.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = DefaultTurnTimeout
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	retry := cfg.Retry
	if retry == nil {
		def := llm.DefaultRetryConfig()
		retry = &def
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	evaluator := evaluation.NewEvaluator(logger)
	return &Orchestrator{
		sessionID:   cfg.SessionID,
		topic:       cfg.Topic,
		rounds:      rounds,
		turnTimeout: turnTimeout,
		retry:       *retry,
		debaters:    cfg.Debaters,
		moderator:   moderator,
		generator:   generator,
		evaluator:   evaluator,
		judge:       evaluation.NewJudge(evaluator, logger),
		broadcaster: broadcaster,
		history:     models.NewDebateHistory(historyLimit),
		rng:         rand.New(rand.NewSource(seed)), // #nosec G404 -- turn order, not crypto
		logger:      logger.With(zap.String("session_id", cfg.SessionID)),
	}, nil
}

// Run conducts the debate. It returns early with the context error when
// cancelled; otherwise every turn yields an argument (real or fallback)
// and the judge's verdict decides the winner.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	metrics.DebateStarted()
	o.logger.Info("debate starting",
		zap.String("topic", o.topic),
		zap.Int("rounds", o.rounds),
		zap.Int("debaters", len(o.debaters)),
	)

	speakers := make([]string, 0, len(o.debaters))
	for _, agent := range o.debaters {
		speakers = append(speakers, agent.Name)
	}
	o.broadcaster.Publish(events.EventDebateStart, StartPayload{
		Topic:    o.topic,
		Rounds:   o.rounds,
		Speakers: speakers,
	})

	o.moderatorTurn(ctx, 0, openingInstruction(o.topic))

	for round := 1; round <= o.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return o.abort(err)
		}
		o.broadcaster.Publish(events.EventRoundStart, RoundPayload{Round: round})

		order := o.shuffledDebaters()
		names := make([]string, 0, len(order))
		for _, agent := range order {
			names = append(names, agent.Name)
		}
		o.broadcaster.Publish(events.EventSystem, map[string]interface{}{
			"message": fmt.Sprintf("round %d speaking order: %s", round, strings.Join(names, " -> ")),
		})

		for idx, agent := range order {
			if err := ctx.Err(); err != nil {
				return o.abort(err)
			}

			// The moderator bridges after every second speaker, except
			// straight into the round's last one.
			if idx > 0 && idx%2 == 0 && idx < len(order)-1 {
				o.interject(ctx, round, order[idx-2].Name, order[idx-1].Name)
			}

			var instruction string
			if idx == 0 {
				instruction = firstSpeakerInstruction(o.topic, round)
			} else {
				instruction = followupInstruction(order[idx-1].Name)
			}

			turn := o.runTurn(ctx, agent, round, instruction)
			if !turn.Succeeded() {
				o.broadcaster.Publish(events.EventSystem, map[string]interface{}{
					"message": fmt.Sprintf("%s could not generate a response (%s); using fallback", agent.Name, turn.Failure),
				})
			}
			o.record(turn.Argument)
		}

		o.broadcaster.Publish(events.EventRoundComplete, RoundPayload{Round: round})

		if round < o.rounds {
			o.moderatorTurn(ctx, round, roundSummaryInstruction(round))
		}
	}

	var supportArgs, opposeArgs []*models.Argument
	arguments := o.history.Snapshot()
	for _, arg := range arguments {
		switch arg.Stance {
		case models.StanceSupport:
			supportArgs = append(supportArgs, arg)
		case models.StanceOppose:
			opposeArgs = append(opposeArgs, arg)
		}
	}
	verdict := o.judge.JudgeDebate(supportArgs, opposeArgs, o.topic)

	o.moderatorTurn(ctx, o.rounds+1, closingInstruction(verdict.SupportScores["overall"], verdict.OpposeScores["overall"]))

	o.broadcaster.Publish(events.EventDebateComplete, CompletePayload{
		Winner:       verdict.Winner,
		SupportScore: verdict.SupportScores["overall"],
		OpposeScore:  verdict.OpposeScores["overall"],
	})
	metrics.DebateCompleted(string(verdict.Winner))
	o.logger.Info("debate complete", zap.String("winner", string(verdict.Winner)))

	return &Result{
		SessionID: o.sessionID,
		Topic:     o.topic,
		Rounds:    o.rounds,
		Winner:    verdict.Winner,
		Verdict:   verdict,
		Arguments: o.history.Snapshot(),
	}, nil
}

// moderatorTurn runs a recorded moderator segment: the opening, a round
// summary, or the closing.
func (o *Orchestrator) moderatorTurn(ctx context.Context, round int, instruction string) {
	turn := o.runTurn(ctx, o.moderator, round, instruction)
	o.record(turn.Argument)
}

// interject runs an unrecorded moderator bridge between speakers. It keeps
// the stream lively without inflating the transcript.
func (o *Orchestrator) interject(ctx context.Context, round int, prev1, prev2 string) {
	turn := o.runTurn(ctx, o.moderator, round, interjectionInstruction(prev1, prev2))
	eval := o.evaluator.Evaluate(turn.Argument, o.history.Snapshot(), o.topic)
	o.broadcaster.Publish(events.EventArgumentComplete, ArgumentPayload{Argument: turn.Argument, Evaluation: eval})
}

// record evaluates an argument against the history so far, appends it, and
// announces its completion.
func (o *Orchestrator) record(arg *models.Argument) {
	eval := o.evaluator.Evaluate(arg, o.history.Snapshot(), o.topic)
	o.history.Append(arg)
	o.broadcaster.Publish(events.EventArgumentComplete, ArgumentPayload{Argument: arg, Evaluation: eval})
}

func (o *Orchestrator) abort(err error) (*Result, error) {
	o.broadcaster.Publish(events.EventSystem, map[string]interface{}{
		"message": "debate aborted: " + err.Error(),
	})
	metrics.DebateCompleted("aborted")
	o.logger.Warn("debate aborted", zap.Error(err))
	return nil, err
}

func (o *Orchestrator) shuffledDebaters() []*Agent {
	order := make([]*Agent, len(o.debaters))
	copy(order, o.debaters)
	o.rng.Shuffle(len(order), func(i, k int) {
		order[i], order[k] = order[k], order[i]
	})
	return order
}
