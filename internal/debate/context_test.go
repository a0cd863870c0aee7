package debate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatearena/debatearena/internal/models"
)

func arg(speaker string, stance models.Stance, round int, text string) *models.Argument {
	return &models.Argument{Speaker: speaker, Stance: stance, Round: round, Text: text}
}

func TestSelectRelevantContextEmptyHistory(t *testing.T) {
	self := &Agent{Name: "Ada", Stance: models.StanceSupport}
	assert.Nil(t, selectRelevantContext(nil, self))
}

func TestSelectRelevantContextPriority(t *testing.T) {
	self := &Agent{Name: "Ada", Stance: models.StanceSupport}
	history := []*models.Argument{
		arg("Mia", models.StanceNeutral, 1, "welcome everyone"),
		arg("Ada", models.StanceSupport, 1, "my own earlier point"),
		arg("Ben", models.StanceOppose, 1, "an opposing point"),
		arg("Cal", models.StanceSupport, 2, "a teammate's point"),
		arg("Ben", models.StanceOppose, 2, "the latest rebuttal"),
	}

	relevant := selectRelevantContext(history, self)
	require.NotEmpty(t, relevant)

	// The immediately preceding argument always comes first.
	assert.Equal(t, "the latest rebuttal", relevant[0].Text)

	texts := make(map[string]bool)
	for _, a := range relevant {
		assert.False(t, texts[a.Text], "duplicate text %q", a.Text)
		texts[a.Text] = true
	}
	// Current round, opposition, teammate, and moderator all represented.
	assert.True(t, texts["a teammate's point"])
	assert.True(t, texts["an opposing point"])
	assert.True(t, texts["welcome everyone"])
}

func TestSelectRelevantContextCap(t *testing.T) {
	self := &Agent{Name: "Ada", Stance: models.StanceSupport}
	var history []*models.Argument
	for round := 1; round <= 4; round++ {
		for i := 0; i < 4; i++ {
			stance := models.StanceSupport
			if i%2 == 1 {
				stance = models.StanceOppose
			}
			history = append(history, arg(
				fmt.Sprintf("agent-%d-%d", round, i), stance, round,
				fmt.Sprintf("argument %d in round %d", i, round),
			))
		}
	}

	relevant := selectRelevantContext(history, self)
	assert.LessOrEqual(t, len(relevant), maxRelevantContext)
	assert.Equal(t, history[len(history)-1].Text, relevant[0].Text)
}

func TestSelectRelevantContextHighQuality(t *testing.T) {
	self := &Agent{Name: "Ada", Stance: models.StanceSupport}
	brilliant := arg("Eve", models.StanceOppose, 1, "a brilliant early point")
	brilliant.QualityScore = 0.95
	history := []*models.Argument{
		brilliant,
		arg("Ben", models.StanceOppose, 2, "filler one"),
		arg("Cal", models.StanceOppose, 2, "filler two"),
		arg("Dan", models.StanceOppose, 2, "filler three"),
	}

	relevant := selectRelevantContext(history, self)
	var found bool
	for _, a := range relevant {
		if a.Text == "a brilliant early point" {
			found = true
		}
	}
	assert.True(t, found, "high-quality argument should be pulled in despite its age")
}

func TestAnalyzeResponse(t *testing.T) {
	a := analyzeResponse("  According to research, adoption works. Therefore we should proceed with the 3 pilot programs.  ")

	assert.Equal(t, "According to research, adoption works. Therefore we should proceed with the 3 pilot programs.", a.Text)
	require.NotEmpty(t, a.Evidence)
	assert.Contains(t, a.Evidence[0], "According to research")
	// Base 0.5 plus length, connector, and specificity bonuses.
	assert.InDelta(t, 0.8, a.Quality, 1e-9)
	assert.InDelta(t, 0.95, a.Confidence, 1e-9)
}

func TestAnalyzeResponseMinimal(t *testing.T) {
	a := analyzeResponse("no")

	assert.Empty(t, a.Evidence)
	assert.Equal(t, 0.5, a.Quality)
	assert.Equal(t, 0.5, a.Confidence)
}

func TestAnalyzeResponseEvidenceCap(t *testing.T) {
	text := "Studies show one. Studies show two. Studies show three. Studies show four."
	a := analyzeResponse(text)
	assert.Len(t, a.Evidence, 3)
}

func TestAgentFallbackTextInCharacter(t *testing.T) {
	roles := []models.Role{
		models.RoleSearcher, models.RoleAnalyzer, models.RoleWriter,
		models.RoleReviewer, models.RoleDevil, models.RoleAngel, models.RoleModerator,
	}
	seen := make(map[string]bool)
	for _, role := range roles {
		a := &Agent{Name: "x", Role: role, Stance: models.StanceSupport, Model: "m"}
		text := a.FallbackText()
		assert.NotEmpty(t, text)
		assert.False(t, seen[text], "role %s shares fallback text", role)
		seen[text] = true
	}
}

func TestAgentValidate(t *testing.T) {
	valid := &Agent{Name: "Ada", Role: models.RoleWriter, Stance: models.StanceSupport, Model: "m"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Agent{Role: models.RoleWriter, Stance: models.StanceSupport, Model: "m"}).Validate())
	assert.Error(t, (&Agent{Name: "Ada", Role: models.RoleWriter, Stance: models.StanceSupport}).Validate())
	assert.Error(t, (&Agent{Name: "Ada", Role: models.RoleWriter, Stance: "sideways", Model: "m"}).Validate())
}

func TestBuildMessages(t *testing.T) {
	agent := &Agent{Name: "Ada", Role: models.RoleWriter, Stance: models.StanceSupport, Model: "m"}
	history := []*models.Argument{
		arg("Ben", models.StanceOppose, 1, "an opposing view"),
	}

	messages := buildMessages(agent, "the topic", history, 1, "respond to Ben")
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "the topic")
	assert.Contains(t, messages[0].Content, "IN FAVOR")
	assert.Equal(t, "user", messages[1].Role)
	assert.Contains(t, messages[1].Content, "respond to Ben")
	assert.Contains(t, messages[1].Content, "an opposing view")
}
