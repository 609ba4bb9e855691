package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/paradox/internal/domain"
)

func TestBuildSubstitutesParamsVerbatim(t *testing.T) {
	got := Build(domain.ModeMath, Params{Grade: "Tier 3", Persona: "Pirate {grade}"})

	assert.Contains(t, got, "Target Grade Level: Tier 3.")
	assert.Contains(t, got, "Persona: Pirate {grade}.")
	assert.Contains(t, got, FinalAnswerMarker)
	assert.NotContains(t, got, "{persona}")
}

func TestBuildDefaults(t *testing.T) {
	got := Build(domain.ModeStory, Params{})
	assert.Contains(t, got, domain.DefaultGrade)
	assert.Contains(t, got, domain.DefaultPersona)
}

func TestEveryModeHasTemplate(t *testing.T) {
	for _, m := range domain.Modes {
		_, ok := templates[m]
		assert.True(t, ok, "missing template for %s", m)
	}
}

func TestFinalAnswerRequiredModesMentionMarker(t *testing.T) {
	for _, m := range domain.Modes {
		spec, _ := m.Spec()
		if spec.FinalAnswer {
			assert.Contains(t, Build(m, Params{}), FinalAnswerMarker, m)
		}
	}
}

func TestFinalAnswer(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"simple", "2 + 2\n= 4\nFinal Answer: 4", "4", true},
		{"bold", "Steps...\n**Final Answer: 42**\n", "42", true},
		{"last wins", "Final Answer: 1\nrevised\nFinal Answer: 2", "2", true},
		{"missing", "just text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FinalAnswer(tt.text)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLive(t *testing.T) {
	got := Live(Params{Grade: "Tier 9"})
	assert.Contains(t, got, "Tier 9")
	assert.Contains(t, got, domain.DefaultPersona)
}
