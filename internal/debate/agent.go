package debate

import (
	"fmt"

	"github.com/debatearena/debatearena/internal/models"
)

// Agent is one debate participant bound to a model.
type Agent struct {
	Name        string        `json:"name" yaml:"name"`
	Role        models.Role   `json:"role" yaml:"role"`
	Stance      models.Stance `json:"stance" yaml:"stance"`
	Model       string        `json:"model" yaml:"model"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
}

var rolePersonas = map[models.Role]string{
	models.RoleSearcher:  "You love digging up information. Anchor every point in concrete facts and name where they come from.",
	models.RoleAnalyzer:  "You enjoy thinking logically. Take arguments apart, expose their structure, and point at the weak joints.",
	models.RoleWriter:    "You are a natural persuader. Build clear, compelling arguments that balance reason with feeling.",
	models.RoleReviewer:  "You are good at tying things together. Review what has been said and reinforce the strongest threads.",
	models.RoleDevil:     "You like taking the contrary view. Challenge assumptions and press hard on anything left unexamined.",
	models.RoleAngel:     "You are positive and hopeful. Defend the upside and build on the strongest supportive points.",
	models.RoleModerator: "You run the debate. Summarize both sides fairly, keep the discussion on track, and point it forward.",
}

var roleFocus = map[models.Role]string{
	models.RoleSearcher:  "Present specific evidence and facts. Use phrases like 'according to research' or 'the data shows'.",
	models.RoleAnalyzer:  "Analyze the logical structure of the opposing arguments and find their weaknesses. Pivot with 'but' or 'however'.",
	models.RoleWriter:    "Compose a persuasive argument with clear logic. Balance emotion and reason.",
	models.RoleReviewer:  "Review the discussion so far and reinforce the key points. Use 'to summarize' or 'the core issue is'.",
	models.RoleDevil:     "Challenge assumptions and premises with strong rebuttals. Ask 'is that really so?' and offer another angle.",
	models.RoleAngel:     "Support and strengthen the positive aspects. Use 'furthermore' or 'this is exactly why'.",
	models.RoleModerator: "Summarize both sides fairly and point the debate forward. Use 'looking at the discussion so far'.",
}

// Fallback lines used when a model fails every retry; each role stays in
// character even while punting.
var roleFallbacks = map[models.Role]string{
	models.RoleSearcher:  "I am still gathering material on this point. The existing research shows a range of perspectives, and I need more concrete data before committing to a claim.",
	models.RoleAnalyzer:  "Let me work through the logic here. The link between the premises and the conclusion offered so far needs to be made much more explicit.",
	models.RoleWriter:    "The heart of this issue is that it has to be approached from several angles at once, and the practical considerations deserve more weight than they have received.",
	models.RoleReviewer:  "From a review standpoint, the discussion so far leaves some gaps to fill. I would suggest tightening the completeness of the arguments before moving on.",
	models.RoleDevil:     "Hold on, there is a problem with this. The claims presented carry some serious holes. Is this really the best approach?",
	models.RoleAngel:     "There is real promise in what has been said. Even where details are missing, the direction itself deserves support and further development.",
	models.RoleModerator: "Let us pause and take stock. Both sides have raised points worth weighing, and the next speaker should address them directly.",
}

// Persona returns the agent's character description for the system prompt.
func (a *Agent) Persona() string {
	persona, ok := rolePersonas[a.Role]
	if !ok {
		persona = rolePersonas[models.RoleWriter]
	}
	return persona
}

// FocusInstruction returns the role-specific guidance appended to each turn
// prompt.
func (a *Agent) FocusInstruction() string {
	focus, ok := roleFocus[a.Role]
	if !ok {
		focus = roleFocus[models.RoleWriter]
	}
	return focus
}

// FallbackText returns the in-character line used when generation fails.
func (a *Agent) FallbackText() string {
	text, ok := roleFallbacks[a.Role]
	if !ok {
		text = roleFallbacks[models.RoleWriter]
	}
	return text
}

// Validate checks the agent is usable in a debate.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("agent name is required")
	}
	if a.Model == "" {
		return fmt.Errorf("agent %s: model is required", a.Name)
	}
	switch a.Stance {
	case models.StanceSupport, models.StanceOppose, models.StanceNeutral:
	default:
		return fmt.Errorf("agent %s: unknown stance %q", a.Name, a.Stance)
	}
	return nil
}
