package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/history"
	"github.com/synaptiq/synaptiq/internal/intent"
	"github.com/synaptiq/synaptiq/internal/knowledge"
	"github.com/synaptiq/synaptiq/internal/models"
	"github.com/synaptiq/synaptiq/internal/persist"
	"github.com/synaptiq/synaptiq/internal/vocab"
)

const (
	// conversationLimit triggers a trim; conversationKeep is how many
	// turns survive it.
	conversationLimit = 50
	conversationKeep  = 40

	persistTimeout = 5 * time.Second
)

// Reply is one assistant answer, addressable for later feedback.
type Reply struct {
	MessageID     string               `json:"message_id"`
	Content       string               `json:"content"`
	Confidence    float64              `json:"confidence"`
	Intent        intent.Intent        `json:"intent"`
	KnowledgeUsed []string             `json:"knowledge_used,omitempty"`
	Trace         []models.ThoughtNode `json:"trace,omitempty"`
}

// counters is the persisted shape of the learning counters.
type counters struct {
	MessagesProcessed int `json:"messages_processed"`
	WordsLearned      int `json:"words_learned"`
}

// Assistant is the conversational surface over the pipeline. It owns the
// conversation window, the persistence lifecycle and the feedback
// routing; all message processing is delegated to the orchestrator.
type Assistant struct {
	orch      *Orchestrator
	vocab     *vocab.Store
	knowledge *knowledge.Base
	store     persist.Store
	histLog   *history.Log
	logger    *zap.Logger

	mu                sync.Mutex
	conversation      []models.ConversationMessage
	replies           map[string]*Reply
	messagesProcessed int
	confidenceSum     float64
	startTime         time.Time
}

// NewAssistant wires the assistant. store must be non-nil (use
// persist.NewMemory for ephemeral sessions); histLog may be nil to
// disable the exchange log.
func NewAssistant(
	orch *Orchestrator,
	vocabStore *vocab.Store,
	base *knowledge.Base,
	store persist.Store,
	histLog *history.Log,
	logger *zap.Logger,
) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		orch:      orch,
		vocab:     vocabStore,
		knowledge: base,
		store:     store,
		histLog:   histLog,
		logger:    logger,
		replies:   make(map[string]*Reply),
		startTime: time.Now(),
	}
}

// Initialize loads the built-in vocabulary, seed files and any persisted
// state. Corrupt persisted payloads are discarded with a warning; a
// fresh session starts in their place.
func (a *Assistant) Initialize(ctx context.Context, seedDir string) error {
	loaded := a.vocab.LoadBasic()
	if seedDir != "" {
		loaded += a.vocab.LoadSeedDir(seedDir)
		a.knowledge.LoadSeedDir(seedDir)
	}
	a.logger.Info("vocabulary initialized",
		zap.Int("entries", loaded), zap.Int("knowledge_items", a.knowledge.TotalItems()))

	a.restoreConversation(ctx)
	a.restoreVocabulary(ctx)
	a.restoreCounters(ctx)
	return nil
}

func (a *Assistant) restoreConversation(ctx context.Context) {
	data, err := a.store.Load(ctx, persist.KeyConversation)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			a.logger.Warn("load conversation failed", zap.Error(err))
		}
		return
	}

	var msgs []models.ConversationMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		a.logger.Warn("discarding corrupt conversation history", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.conversation = msgs
	a.mu.Unlock()
	a.logger.Info("conversation restored", zap.Int("messages", len(msgs)))
}

func (a *Assistant) restoreVocabulary(ctx context.Context) {
	data, err := a.store.Load(ctx, persist.KeyVocabulary)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			a.logger.Warn("load vocabulary failed", zap.Error(err))
		}
		return
	}

	var entries []models.VocabularyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		a.logger.Warn("discarding corrupt learned vocabulary", zap.Error(err))
		return
	}

	for _, entry := range entries {
		a.vocab.AddWord(entry)
	}
	a.logger.Info("learned vocabulary restored", zap.Int("entries", len(entries)))
}

func (a *Assistant) restoreCounters(ctx context.Context) {
	data, err := a.store.Load(ctx, persist.KeyCounters)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			a.logger.Warn("load counters failed", zap.Error(err))
		}
		return
	}

	var c counters
	if err := json.Unmarshal(data, &c); err != nil {
		a.logger.Warn("discarding corrupt counters", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.messagesProcessed = c.MessagesProcessed
	a.mu.Unlock()
	a.orch.restoreLearnedCount(c.WordsLearned)
}

// ProcessMessage runs one user message through the pipeline, records both
// turns, persists state and returns the addressable reply. Persistence
// and history-log failures are logged but never fail the exchange.
func (a *Assistant) ProcessMessage(ctx context.Context, text string) (*Reply, error) {
	start := time.Now()
	messageID := uuid.New().String()

	outcome := a.orch.Process(ctx, text)

	reply := &Reply{
		MessageID:     messageID,
		Content:       outcome.Content,
		Confidence:    outcome.Confidence,
		Intent:        outcome.Intent,
		KnowledgeUsed: outcome.KnowledgeUsed,
	}

	a.mu.Lock()
	now := time.Now()
	a.conversation = append(a.conversation,
		models.ConversationMessage{
			ID:        uuid.New().String(),
			Role:      models.RoleUser,
			Content:   text,
			Timestamp: now,
		},
		models.ConversationMessage{
			ID:            messageID,
			Role:          models.RoleAssistant,
			Content:       reply.Content,
			Timestamp:     now,
			Confidence:    reply.Confidence,
			Intent:        string(reply.Intent),
			KnowledgeUsed: reply.KnowledgeUsed,
		})
	if len(a.conversation) > conversationLimit {
		a.conversation = a.conversation[len(a.conversation)-conversationKeep:]
	}
	a.replies[messageID] = reply
	a.messagesProcessed++
	a.confidenceSum += reply.Confidence
	a.mu.Unlock()

	a.persistState()
	outcome.trace.Add(StatePersisted, "state saved", 1.0)
	reply.Trace = outcome.Trace()

	a.recordExchange(ctx, messageID, text, reply, time.Since(start))
	return reply, nil
}

// persistState saves the conversation window, learned vocabulary and
// counters with a bounded timeout.
func (a *Assistant) persistState() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	a.mu.Lock()
	convJSON, err := json.Marshal(a.conversation)
	c := counters{
		MessagesProcessed: a.messagesProcessed,
		WordsLearned:      a.orch.WordsLearned(),
	}
	a.mu.Unlock()

	if err == nil {
		if err := a.store.Save(ctx, persist.KeyConversation, convJSON); err != nil {
			a.logger.Warn("persist conversation failed", zap.Error(err))
		}
	}

	if vocabJSON, err := json.Marshal(a.vocab.LearnedEntries()); err == nil {
		if err := a.store.Save(ctx, persist.KeyVocabulary, vocabJSON); err != nil {
			a.logger.Warn("persist vocabulary failed", zap.Error(err))
		}
	}

	if countersJSON, err := json.Marshal(c); err == nil {
		if err := a.store.Save(ctx, persist.KeyCounters, countersJSON); err != nil {
			a.logger.Warn("persist counters failed", zap.Error(err))
		}
	}
}

func (a *Assistant) recordExchange(ctx context.Context, messageID, userText string, reply *Reply, elapsed time.Duration) {
	if a.histLog == nil {
		return
	}

	now := time.Now()
	if err := a.histLog.Record(ctx, history.Exchange{
		MessageID: messageID,
		Role:      models.RoleUser,
		Content:   userText,
		Timestamp: now,
	}); err != nil {
		a.logger.Warn("record user exchange failed", zap.Error(err))
	}
	if err := a.histLog.Record(ctx, history.Exchange{
		MessageID:     messageID,
		Role:          models.RoleAssistant,
		Content:       reply.Content,
		Intent:        string(reply.Intent),
		Confidence:    reply.Confidence,
		DurationMs:    elapsed.Milliseconds(),
		KnowledgeUsed: reply.KnowledgeUsed,
		Timestamp:     now,
	}); err != nil {
		a.logger.Warn("record assistant exchange failed", zap.Error(err))
	}

	if n, err := a.histLog.Count(ctx); err == nil && n > conversationLimit {
		if err := a.histLog.Trim(ctx, conversationKeep); err != nil {
			a.logger.Warn("trim exchange log failed", zap.Error(err))
		}
	}
}

// ProvideFeedback adjusts the reliability of every knowledge item the
// addressed reply drew on. Unknown message IDs are an error; replies that
// used no knowledge are a no-op.
func (a *Assistant) ProvideFeedback(messageID string, fb knowledge.Feedback) error {
	a.mu.Lock()
	reply, ok := a.replies[messageID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown message id %q", messageID)
	}

	for _, id := range reply.KnowledgeUsed {
		if err := a.knowledge.Feedback(id, fb); err != nil {
			return fmt.Errorf("apply feedback to %s: %w", id, err)
		}
	}
	return nil
}

// History returns a copy of the current conversation window.
func (a *Assistant) History() []models.ConversationMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.ConversationMessage, len(a.conversation))
	copy(out, a.conversation)
	return out
}

// GetStats reports session activity.
func (a *Assistant) GetStats() models.Stats {
	a.mu.Lock()
	processed := a.messagesProcessed
	sum := a.confidenceSum
	a.mu.Unlock()

	avg := 0.0
	if processed > 0 {
		avg = sum / float64(processed)
	}

	return models.Stats{
		MessagesProcessed: processed,
		WordsLearned:      a.orch.WordsLearned(),
		VocabularySize:    a.vocab.Size(),
		KnowledgeItems:    a.knowledge.TotalItems(),
		AvgConfidence:     avg,
		Uptime:            time.Since(a.startTime),
	}
}

// exportPayload is the JSON shape written by ExportData.
type exportPayload struct {
	ExportedAt   time.Time                    `json:"exported_at"`
	Stats        models.Stats                 `json:"stats"`
	Conversation []models.ConversationMessage `json:"conversation"`
	Vocabulary   []models.VocabularyEntry     `json:"learned_vocabulary"`
	Knowledge    map[string][]string          `json:"knowledge"`
}

// ExportData writes a JSON snapshot of the session to w.
func (a *Assistant) ExportData(w io.Writer) error {
	know := make(map[string][]string)
	for _, store := range []*knowledge.Store{
		a.knowledge.Math(), a.knowledge.Facts(), a.knowledge.Personal(), a.knowledge.Coding(),
	} {
		var contents []string
		for _, item := range store.Items() {
			contents = append(contents, item.Core().Content)
		}
		know[store.Category()] = contents
	}

	payload := exportPayload{
		ExportedAt:   time.Now(),
		Stats:        a.GetStats(),
		Conversation: a.History(),
		Vocabulary:   a.vocab.LearnedEntries(),
		Knowledge:    know,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("export session data: %w", err)
	}
	return nil
}

// Close flushes nothing further; it releases the persistence backend and
// the exchange log.
func (a *Assistant) Close() error {
	var errs []string
	if a.histLog != nil {
		if err := a.histLog.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("close assistant: %s", strings.Join(errs, "; "))
	}
	return nil
}
