// Package pipeline sequences tokenization, intent matching, knowledge
// activation and learning into the message-processing state machine, and
// exposes the caller-facing assistant API over it.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/intent"
	"github.com/synaptiq/synaptiq/internal/knowledge"
	"github.com/synaptiq/synaptiq/internal/models"
	"github.com/synaptiq/synaptiq/internal/token"
	"github.com/synaptiq/synaptiq/internal/vocab"
)

// Config holds orchestrator tuning.
type Config struct {
	// MaxIterations bounds the refinement loop.
	MaxIterations int
	// RefineThreshold is the confidence below which refinement runs and
	// above which it stops early.
	RefineThreshold float64
	// LookupTimeout bounds one external dictionary lookup.
	LookupTimeout time.Duration
	// MinLearnLength is the shortest token the learning step records.
	MinLearnLength int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:   3,
		RefineThreshold: 0.9,
		LookupTimeout:   3 * time.Second,
		MinLearnLength:  3,
	}
}

// Outcome is the result of processing one message through the pipeline.
type Outcome struct {
	Content       string
	Confidence    float64
	Intent        intent.Intent
	KnowledgeUsed []string
	trace         *Trace
}

// Trace returns the recorded thought nodes in order.
func (out *Outcome) Trace() []models.ThoughtNode {
	return out.trace.Nodes()
}

// Orchestrator owns the per-call trace and response; the vocabulary and
// knowledge stores are shared state mutated only through their methods.
type Orchestrator struct {
	tokenizer *token.Tokenizer
	matcher   *intent.Matcher
	vocab     *vocab.Store
	knowledge *knowledge.Base
	dict      Dictionary
	config    *Config
	logger    *zap.Logger
	handlers  map[intent.Intent]Handler

	mu           sync.Mutex
	wordsLearned int
}

// NewOrchestrator wires the pipeline components. dict may be nil; the
// definition handler then skips external lookups.
func NewOrchestrator(
	config *Config,
	vocabStore *vocab.Store,
	base *knowledge.Base,
	dict Dictionary,
	logger *zap.Logger,
) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		tokenizer: token.New(vocabStore),
		matcher:   intent.NewMatcher(),
		vocab:     vocabStore,
		knowledge: base,
		dict:      dict,
		config:    config,
		logger:    logger,
	}
	o.registerHandlers()
	return o
}

// Process runs one message through the state machine. It never fails a
// user-visible exchange: every error path degrades into a low-confidence
// response with the trace explaining what happened.
func (o *Orchestrator) Process(ctx context.Context, text string) *Outcome {
	trace := newTrace()
	trace.Add(StateReceived, fmt.Sprintf("received %d bytes", len(text)), 1.0)

	if strings.TrimSpace(text) == "" {
		trace.Add(StateError, "empty input", 0.2)
		return &Outcome{
			Content:    "I didn't catch that. Say something and I'll do my best.",
			Confidence: 0.2,
			Intent:     intent.GeneralConversation,
			trace:      trace,
		}
	}

	tokens := o.tokenizer.Tokenize(text)
	trace.Add(StateTokenized,
		fmt.Sprintf("%d tokens", tokens.TotalTokens), tokens.Confidence)

	match := o.matcher.Match(text)
	trace.Add(StateIntentMatched,
		fmt.Sprintf("intent %s", match.Intent), match.Confidence)

	match = o.refine(text, match, trace)

	resp, err := o.activate(ctx, &HandlerRequest{Text: text, Match: match, Tokens: tokens})
	if err != nil {
		o.logger.Warn("handler failed",
			zap.String("intent", string(match.Intent)), zap.Error(err))
		trace.Add(StateError, fmt.Sprintf("handler failed: %v", err), 0.3)
		resp = &HandlerResponse{
			Content:    "I'm sorry, I ran into trouble with that one. Could you try rephrasing it?",
			Confidence: 0.3,
		}
	}
	trace.Add(StateKnowledgeActivated,
		fmt.Sprintf("%d knowledge items touched", len(resp.KnowledgeUsed)), resp.Confidence)
	trace.Add(StateResponseGenerated,
		fmt.Sprintf("%d bytes", len(resp.Content)), resp.Confidence)

	learned := o.learn(tokens)
	trace.Add(StateLearned, fmt.Sprintf("%d new words", learned), 1.0)

	return &Outcome{
		Content:       resp.Content,
		Confidence:    resp.Confidence,
		Intent:        match.Intent,
		KnowledgeUsed: resp.KnowledgeUsed,
		trace:         trace,
	}
}

// refine reruns the matcher on reframed input while confidence stays
// below the threshold, keeping the best result seen. The loop is bounded
// by MaxIterations regardless of input.
func (o *Orchestrator) refine(text string, best intent.Result, trace *Trace) intent.Result {
	if best.Confidence >= o.config.RefineThreshold {
		return best
	}

	for i := 1; i <= o.config.MaxIterations; i++ {
		reframed := o.selfPrompt(best.Intent, text, i)
		candidate := o.matcher.Match(reframed)
		if candidate.Confidence > best.Confidence {
			best = candidate
		}
		trace.Add(StateRefining,
			fmt.Sprintf("round %d: %s", i, best.Intent), best.Confidence)
		if best.Confidence > o.config.RefineThreshold {
			break
		}
	}
	return best
}

// selfPrompt builds the intent-specific reframing for one refinement
// round. Reframings are deterministic so refinement preserves the
// matcher's determinism guarantee.
func (o *Orchestrator) selfPrompt(current intent.Intent, text string, round int) string {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), "?!."))
	switch current {
	case intent.DefinitionRequest:
		return "what is " + lastField(trimmed)
	case intent.ExplanationRequest:
		return "explain " + trimmed
	case intent.MathCalculation, intent.TeslaMath:
		return exprRe.FindString(trimmed)
	case intent.SystemDiagnostic:
		return "stats"
	default:
		if round > 1 {
			return trimmed
		}
		return strings.ToLower(trimmed)
	}
}

// activate dispatches to the matched intent's handler, converting panics
// into errors so a misbehaving handler cannot abort the exchange.
func (o *Orchestrator) activate(ctx context.Context, req *HandlerRequest) (resp *HandlerResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler, ok := o.handlers[req.Match.Intent]
	if !ok {
		handler = o.handleGeneral
	}
	return handler(ctx, req)
}

// learn inserts a provisional vocabulary entry for every unrecognized
// token longer than the configured minimum, independent of whether an
// external lookup later succeeds.
func (o *Orchestrator) learn(tokens token.Result) int {
	learned := 0
	for _, tok := range tokens.Tokens {
		switch tok.Type {
		case models.TokenWord, models.TokenUnknown:
		default:
			continue
		}
		if len([]rune(tok.Text)) < o.config.MinLearnLength {
			continue
		}
		if o.learnWord(tok.Text) {
			learned++
		}
	}
	return learned
}

// learnWord registers word as a provisional learned entry. Returns false
// when the word is already known.
func (o *Orchestrator) learnWord(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || o.vocab.Has(word) {
		return false
	}

	o.vocab.AddWord(models.VocabularyEntry{
		Word:       word,
		Source:     models.SourceLearned,
		Confidence: 0.3,
		Frequency:  1,
		Timestamp:  time.Now(),
	})

	o.mu.Lock()
	o.wordsLearned++
	o.mu.Unlock()

	o.logger.Debug("learned provisional word", zap.String("word", word))
	return true
}

// WordsLearned returns the session's learned-word counter.
func (o *Orchestrator) WordsLearned() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.wordsLearned
}

// restoreLearnedCount seeds the counter from persisted state.
func (o *Orchestrator) restoreLearnedCount(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n > o.wordsLearned {
		o.wordsLearned = n
	}
}

func lastField(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return text
	}
	return fields[len(fields)-1]
}
