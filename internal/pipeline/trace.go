package pipeline

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/synaptiq/synaptiq/internal/models"
)

// State names the steps of the message-processing state machine. Each
// transition appends one ThoughtNode to the per-call trace.
type State string

const (
	StateReceived           State = "RECEIVED"
	StateTokenized          State = "TOKENIZED"
	StateIntentMatched      State = "INTENT_MATCHED"
	StateRefining           State = "REFINING"
	StateKnowledgeActivated State = "KNOWLEDGE_ACTIVATED"
	StateResponseGenerated  State = "RESPONSE_GENERATED"
	StateLearned            State = "LEARNED"
	StatePersisted          State = "PERSISTED"
	StateError              State = "ERROR"
)

// Trace is the append-only explanation of one processed message. Node ids
// are monotonic ULIDs, so trace order is reproducible from the ids alone.
// The trace never influences the pipeline outcome.
type Trace struct {
	entropy *ulid.MonotonicEntropy
	nodes   []models.ThoughtNode
}

func newTrace() *Trace {
	return &Trace{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Add appends one node for a state transition.
func (t *Trace) Add(state State, content string, confidence float64) {
	now := time.Now()
	t.nodes = append(t.nodes, models.ThoughtNode{
		ID:         ulid.MustNew(ulid.Timestamp(now), t.entropy).String(),
		Content:    content,
		Kind:       string(state),
		Confidence: confidence,
		Timestamp:  now,
	})
}

// Nodes returns the recorded nodes in append order.
func (t *Trace) Nodes() []models.ThoughtNode {
	return t.nodes
}
