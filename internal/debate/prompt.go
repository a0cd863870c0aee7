package debate

import (
	"fmt"
	"strings"

	"github.com/debatearena/debatearena/internal/llm"
	"github.com/debatearena/debatearena/internal/models"
)

const contextExcerptLimit = 200

// buildMessages assembles the chat request for one turn: a system prompt
// carrying the agent's persona and stance, and a user prompt carrying the
// turn instruction plus the relevant slice of the conversation.
func buildMessages(agent *Agent, topic string, history []*models.Argument, round int, instruction string) []llm.Message {
	var system strings.Builder
	system.WriteString(agent.Persona())
	system.WriteString("\n\nDebate topic: ")
	system.WriteString(topic)
	switch agent.Stance {
	case models.StanceSupport:
		system.WriteString("\nYou argue IN FAVOR of the topic.")
	case models.StanceOppose:
		system.WriteString("\nYou argue AGAINST the topic.")
	default:
		system.WriteString("\nYou stay neutral and moderate the discussion.")
	}
	system.WriteString("\nSpeak as yourself in plain conversational prose. Do not narrate or use stage directions.")

	var user strings.Builder
	fmt.Fprintf(&user, "Round %d. %s\n", round, instruction)

	if relevant := selectRelevantContext(history, agent); len(relevant) > 0 {
		user.WriteString("\nRecent discussion:\n")
		for _, arg := range relevant {
			excerpt := arg.Text
			if len(excerpt) > contextExcerptLimit {
				excerpt = excerpt[:contextExcerptLimit] + "..."
			}
			fmt.Fprintf(&user, "- %s (%s, round %d): %s\n", arg.Speaker, arg.Stance, arg.Round, excerpt)
		}
	}

	user.WriteString("\n")
	user.WriteString(agent.FocusInstruction())

	return []llm.Message{
		{Role: "system", Content: system.String()},
		{Role: "user", Content: user.String()},
	}
}

// firstSpeakerInstruction opens a round.
func firstSpeakerInstruction(topic string, round int) string {
	return fmt.Sprintf("You speak first in round %d. State your position on '%s' clearly.", round, topic)
}

// followupInstruction responds to the previous speaker.
func followupInstruction(lastSpeaker string) string {
	return fmt.Sprintf("Following %s's remarks, present your own perspective. Take the previous statement into account.", lastSpeaker)
}

// openingInstruction is the moderator's kickoff line.
func openingInstruction(topic string) string {
	return fmt.Sprintf("Open the debate. The topic is '%s'. Welcome the participants and invite everyone to speak freely.", topic)
}

// interjectionInstruction asks the moderator to bridge between speakers.
func interjectionInstruction(prev1, prev2 string) string {
	return fmt.Sprintf("Briefly sum up what %s and %s just said, then hand the next speaker a concrete point to address.", prev1, prev2)
}

// roundSummaryInstruction closes out a round.
func roundSummaryInstruction(round int) string {
	return fmt.Sprintf("Wrap up round %d: summarize the key points of contention and each team's main arguments, then set the direction for the next round.", round)
}

// closingInstruction asks the moderator for the final wrap-up.
func closingInstruction(supportScore, opposeScore float64) string {
	return fmt.Sprintf("Close the debate: weigh the full discussion and state the final verdict with its implications. Scores - support: %.2f, oppose: %.2f.", supportScore, opposeScore)
}
