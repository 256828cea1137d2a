package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/dictionary"
	"github.com/synaptiq/synaptiq/internal/intent"
	"github.com/synaptiq/synaptiq/internal/knowledge"
	"github.com/synaptiq/synaptiq/internal/models"
	"github.com/synaptiq/synaptiq/internal/vocab"
)

type failingDict struct{}

func (failingDict) Lookup(ctx context.Context, word string) (*dictionary.Definition, error) {
	return nil, errors.New("service unavailable")
}

type cannedDict struct {
	def dictionary.Definition
}

func (d cannedDict) Lookup(ctx context.Context, word string) (*dictionary.Definition, error) {
	def := d.def
	def.Word = word
	return &def, nil
}

func newTestOrchestrator(t *testing.T, dict Dictionary) (*Orchestrator, *vocab.Store, *knowledge.Base) {
	t.Helper()
	store := vocab.NewStore(zap.NewNop())
	store.LoadBasic()
	base := knowledge.NewBase(zap.NewNop())
	return NewOrchestrator(nil, store, base, dict, zap.NewNop()), store, base
}

func states(nodes []models.ThoughtNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Kind
	}
	return out
}

func TestProcessMath(t *testing.T) {
	orch, _, base := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "2 + 3")
	assert.Equal(t, intent.MathCalculation, out.Intent)
	assert.Contains(t, out.Content, "5")
	assert.GreaterOrEqual(t, out.Confidence, 0.9)
	require.Len(t, out.KnowledgeUsed, 1)
	assert.Equal(t, 1, base.Math().Count())
}

func TestProcessMathOperators(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	cases := map[string]string{
		"10 - 4":          "6",
		"6 * 7":           "42",
		"calculate 9 / 2": "4.5",
		"2 ^ 10":          "1024",
		"10 % 3":          "1",
		"(2 + 3) * 4":     "20",
	}
	for input, want := range cases {
		out := orch.Process(context.Background(), input)
		assert.Equal(t, intent.MathCalculation, out.Intent, input)
		assert.Contains(t, out.Content, want, input)
	}
}

func TestProcessMathErrorFallsBack(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "1 / 0")
	assert.InDelta(t, 0.3, out.Confidence, 1e-9)
	assert.Contains(t, out.Content, "rephrasing")
	assert.Contains(t, states(out.Trace()), string(StateError))
}

func TestProcessDefinitionDictionaryDown(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t, failingDict{})

	out := orch.Process(context.Background(), "what is serendipity")
	assert.Equal(t, intent.DefinitionRequest, out.Intent)
	assert.LessOrEqual(t, out.Confidence, 0.4)
	assert.Contains(t, out.Content, "serendipity")

	entry, ok := store.GetWord("serendipity")
	require.True(t, ok)
	assert.Equal(t, models.SourceLearned, entry.Source)
	assert.InDelta(t, 0.3, entry.Confidence, 1e-9)
	assert.Empty(t, entry.Definition)
	assert.GreaterOrEqual(t, orch.WordsLearned(), 1)
}

func TestProcessDefinitionDictionaryUp(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t, cannedDict{def: dictionary.Definition{
		Definition:   "finding good things without looking for them",
		PartOfSpeech: "noun",
	}})

	out := orch.Process(context.Background(), "what is serendipity")
	assert.Contains(t, out.Content, "finding good things")
	assert.InDelta(t, 0.85, out.Confidence, 1e-9)

	entry, ok := store.GetWord("serendipity")
	require.True(t, ok)
	assert.Equal(t, "finding good things without looking for them", entry.Definition)
	assert.InDelta(t, 0.7, entry.Confidence, 1e-9)
}

func TestProcessDefinitionFromVocabulary(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t, failingDict{})
	store.AddWord(models.VocabularyEntry{
		Word:       "quasar",
		Definition: "an extremely luminous galactic core",
		Source:     models.SourceSeed,
		Confidence: 0.9,
	})

	out := orch.Process(context.Background(), "what is quasar")
	assert.Contains(t, out.Content, "luminous")
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)
}

func TestProcessPersonalInfo(t *testing.T) {
	orch, _, base := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "my name is Ron")
	assert.Equal(t, intent.PersonalInfo, out.Intent)
	assert.GreaterOrEqual(t, out.Confidence, 0.9)
	assert.Contains(t, out.Content, "Ron")
	require.Len(t, out.KnowledgeUsed, 1)

	item, err := base.Get(out.KnowledgeUsed[0])
	require.NoError(t, err)
	assert.Equal(t, "name: Ron", item.Core().Content)
}

func TestProcessMemoryStorage(t *testing.T) {
	orch, _, base := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "remember that the sky is blue")
	assert.Equal(t, intent.MemoryStorage, out.Intent)
	require.Len(t, out.KnowledgeUsed, 1)

	item, err := base.Get(out.KnowledgeUsed[0])
	require.NoError(t, err)
	assert.Equal(t, "the sky is blue", item.Core().Content)
	assert.Contains(t, item.Core().Tags, "user_memory")
}

func TestProcessTeslaMath(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "show me the vortex math of 369")
	assert.Equal(t, intent.TeslaMath, out.Intent)
	assert.Contains(t, out.Content, "digital root")
	assert.Contains(t, out.Content, "9")
}

func TestProcessEmptyInput(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	for _, input := range []string{"", "   ", "\t\n"} {
		out := orch.Process(context.Background(), input)
		assert.LessOrEqual(t, out.Confidence, 0.5)
		assert.NotEmpty(t, out.Content)
	}
}

func TestProcessTraceStates(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "hello there")
	got := states(out.Trace())

	assert.Equal(t, string(StateReceived), got[0])
	for _, want := range []State{
		StateTokenized, StateIntentMatched, StateKnowledgeActivated,
		StateResponseGenerated, StateLearned,
	} {
		assert.Contains(t, got, string(want))
	}

	// Node IDs are ULIDs minted in order.
	nodes := out.Trace()
	for i := 1; i < len(nodes); i++ {
		assert.Less(t, nodes[i-1].ID, nodes[i].ID)
	}
}

func TestRefinementBounded(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	// No pattern matches this, so refinement runs to its iteration cap.
	out := orch.Process(context.Background(), "zxqv mmbl ktr")
	refining := 0
	for _, s := range states(out.Trace()) {
		if s == string(StateRefining) {
			refining++
		}
	}
	assert.LessOrEqual(t, refining, 3)
	assert.Equal(t, intent.GeneralConversation, out.Intent)
}

func TestRefinementSkippedWhenConfident(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "2 + 3")
	assert.NotContains(t, states(out.Trace()), string(StateRefining))
}

func TestHandlerPanicRecovered(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)
	orch.handlers[intent.Greeting] = func(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
		panic("boom")
	}

	out := orch.Process(context.Background(), "hello")
	assert.InDelta(t, 0.3, out.Confidence, 1e-9)
	assert.Contains(t, states(out.Trace()), string(StateError))
}

func TestLearningStep(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t, nil)

	before := store.Size()
	orch.Process(context.Background(), "the floccinaucinihilipilification of xylophony")
	assert.True(t, store.Has("floccinaucinihilipilification"))
	assert.True(t, store.Has("xylophony"))
	assert.Greater(t, store.Size(), before)

	// Short tokens are never learned.
	orch.Process(context.Background(), "ab cd")
	assert.False(t, store.Has("ab"))
	assert.False(t, store.Has("cd"))
}

func TestLearningIdempotent(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	orch.Process(context.Background(), "xylophony")
	n := orch.WordsLearned()
	orch.Process(context.Background(), "xylophony")
	assert.Equal(t, n, orch.WordsLearned())
}

func TestProcessDeterministicIntent(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	inputs := []string{"2 + 3", "hello", "explain gravity", "stats please"}
	for _, input := range inputs {
		first := orch.Process(context.Background(), input)
		for i := 0; i < 5; i++ {
			again := orch.Process(context.Background(), input)
			assert.Equal(t, first.Intent, again.Intent, input)
		}
	}
}

func TestProcessDiagnostic(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "give me a status report")
	assert.Equal(t, intent.SystemDiagnostic, out.Intent)
	assert.Contains(t, out.Content, "vocabulary")
}

func TestProcessExplanationUsesKnowledge(t *testing.T) {
	orch, _, base := newTestOrchestrator(t, nil)
	id, err := base.Facts().Add("gravity pulls masses together", []string{"gravity", "physics"})
	require.NoError(t, err)

	out := orch.Process(context.Background(), "explain gravity")
	assert.Equal(t, intent.ExplanationRequest, out.Intent)
	assert.Contains(t, out.Content, "gravity pulls masses together")
	assert.Contains(t, out.KnowledgeUsed, id)
}

func TestProcessGeneralFallback(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	out := orch.Process(context.Background(), "zxqv mmbl")
	assert.Equal(t, intent.GeneralConversation, out.Intent)
	assert.InDelta(t, 0.5, out.Confidence, 0.2)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "5", formatNumber(5))
	assert.Equal(t, "4.5", formatNumber(4.5))
	assert.Equal(t, "-12", formatNumber(-12))
}

func TestDigitalRoot(t *testing.T) {
	cases := map[int64]int64{0: 0, 9: 9, 369: 9, 12345: 6, 999999999: 9}
	for n, want := range cases {
		assert.Equal(t, want, digitalRoot(n), fmt.Sprintf("digitalRoot(%d)", n))
	}
	assert.Equal(t, int64(3), digitalRoot(-12))
}

func TestSelfPromptDeterministic(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)

	a := orch.selfPrompt(intent.ExplanationRequest, "tell me about tides?", 1)
	b := orch.selfPrompt(intent.ExplanationRequest, "tell me about tides?", 1)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "explain "))
}
