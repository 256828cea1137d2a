package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchIntents(t *testing.T) {
	m := NewMatcher()

	cases := []struct {
		text string
		want Intent
	}{
		{"2 + 3", MathCalculation},
		{"what is 12 * 4?", MathCalculation},
		{"calculate 10 / 2", MathCalculation},
		{"tell me about the tesla vortex", TeslaMath},
		{"what is the digital root of 12345", TeslaMath},
		{"what is serendipity", DefinitionRequest},
		{"define gopher", DefinitionRequest},
		{"what does ephemeral mean?", DefinitionRequest},
		{"my name is Ron", PersonalInfo},
		{"i live in Lisbon", PersonalInfo},
		{"i like black coffee", PersonalInfo},
		{"remember that the meeting is on Friday", MemoryStorage},
		{"hello there", Greeting},
		{"good morning", Greeting},
		{"show me your stats", SystemDiagnostic},
		{"run a diagnostic", SystemDiagnostic},
		{"what can you do", CapabilityInquiry},
		{"explain photosynthesis", ExplanationRequest},
		{"tell me about rivers", ExplanationRequest},
		{"the weather sure is something", GeneralConversation},
		{"", GeneralConversation},
	}

	for _, tc := range cases {
		got := m.Match(tc.text)
		assert.Equal(t, tc.want, got.Intent, "text %q", tc.text)
	}
}

func TestMatchConfidenceBounds(t *testing.T) {
	m := NewMatcher()
	inputs := []string{
		"2 + 3", "what is serendipity", "hello", "remember that x",
		"random chatter about nothing", "",
	}
	for _, text := range inputs {
		got := m.Match(text)
		assert.GreaterOrEqual(t, got.Confidence, 0.0, "text %q", text)
		assert.LessOrEqual(t, got.Confidence, 1.0, "text %q", text)
	}
}

func TestMatchDeterminism(t *testing.T) {
	m := NewMatcher()
	inputs := []string{
		"2 + 3", "what is serendipity", "my name is Ron",
		"hello there friend", "explain gravity", "zzz qqq",
	}
	for _, text := range inputs {
		first := m.Match(text)
		second := m.Match(text)
		assert.Equal(t, first.Intent, second.Intent, "text %q", text)
		assert.Equal(t, first.Confidence, second.Confidence, "text %q", text)
	}
}

func TestMathOutranksNumerologyForPlainNumbers(t *testing.T) {
	// A bare arithmetic input never lands in the numerology intent; that
	// one requires its keyword vocabulary.
	m := NewMatcher()
	assert.Equal(t, MathCalculation, m.Match("3 + 6 + 9").Intent)
	assert.Equal(t, TeslaMath, m.Match("vortex math of 369").Intent)
}

func TestMathCapturesExpression(t *testing.T) {
	m := NewMatcher()
	got := m.Match("what is 2 + 3?")
	require.Equal(t, MathCalculation, got.Intent)
	require.NotEmpty(t, got.Captures)
	assert.Contains(t, got.Captures[0], "2 + 3")
	assert.GreaterOrEqual(t, got.Confidence, 0.9)
}

func TestDefinitionCapturesWord(t *testing.T) {
	m := NewMatcher()
	got := m.Match("what is serendipity")
	require.Equal(t, DefinitionRequest, got.Intent)
	require.NotEmpty(t, got.Captures)
	assert.Equal(t, "serendipity", got.Captures[0])
}

func TestFallbackConfidence(t *testing.T) {
	m := NewMatcher()
	got := m.Match("mundane remark with no intent keywords")
	assert.Equal(t, GeneralConversation, got.Intent)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestFullCoverageKeepsBaseConfidence(t *testing.T) {
	m := NewMatcher()
	got := m.Match("2 + 3")
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}
