package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/dictionary"
	"github.com/synaptiq/synaptiq/internal/intent"
	"github.com/synaptiq/synaptiq/internal/mathexpr"
	"github.com/synaptiq/synaptiq/internal/models"
	"github.com/synaptiq/synaptiq/internal/token"
)

// Dictionary is the external word-lookup collaborator contract.
type Dictionary interface {
	Lookup(ctx context.Context, word string) (*dictionary.Definition, error)
}

// HandlerRequest carries everything an intent handler may need.
type HandlerRequest struct {
	Text   string
	Match  intent.Result
	Tokens token.Result
}

// HandlerResponse is one handler's contribution to the reply.
type HandlerResponse struct {
	Content       string
	Confidence    float64
	KnowledgeUsed []string
}

// Handler implements one intent. Handlers read and write the vocabulary
// and knowledge stores; any error or panic is absorbed at the pipeline
// boundary and becomes a low-confidence fallback response.
type Handler func(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error)

func (o *Orchestrator) registerHandlers() {
	o.handlers = map[intent.Intent]Handler{
		intent.MathCalculation:     o.handleMath,
		intent.TeslaMath:           o.handleTeslaMath,
		intent.DefinitionRequest:   o.handleDefinition,
		intent.PersonalInfo:        o.handlePersonalInfo,
		intent.MemoryStorage:       o.handleMemoryStorage,
		intent.Greeting:            o.handleGreeting,
		intent.SystemDiagnostic:    o.handleDiagnostic,
		intent.CapabilityInquiry:   o.handleCapabilities,
		intent.ExplanationRequest:  o.handleExplanation,
		intent.GeneralConversation: o.handleGeneral,
	}
}

var exprRe = regexp.MustCompile(`[-+(]*\d+(?:\.\d+)?(?:\s*[-+*/%^)(]+\s*[-+(]*\d+(?:\.\d+)?[)\s]*)+`)

func (o *Orchestrator) handleMath(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	expr := ""
	if len(req.Match.Captures) > 0 {
		expr = strings.TrimSpace(req.Match.Captures[0])
	}
	if expr == "" {
		expr = strings.TrimSpace(exprRe.FindString(req.Text))
	}
	if expr == "" {
		return nil, fmt.Errorf("no arithmetic expression in %q", req.Text)
	}

	value, err := mathexpr.Evaluate(expr)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}

	rendered := formatNumber(value)
	id, err := o.knowledge.Math().AddItem(&models.MathItem{
		Formula: expr,
	}, fmt.Sprintf("%s = %s", expr, rendered), []string{"arithmetic", "computed"})
	if err != nil {
		return nil, err
	}

	return &HandlerResponse{
		Content:       fmt.Sprintf("%s = %s", expr, rendered),
		Confidence:    0.95,
		KnowledgeUsed: []string{id},
	}, nil
}

var firstNumberRe = regexp.MustCompile(`\d+`)

func (o *Orchestrator) handleTeslaMath(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	raw := firstNumberRe.FindString(req.Text)
	if raw == "" {
		return &HandlerResponse{
			Content:    "Give me a number and I can walk you through its digital root and vortex cycle.",
			Confidence: 0.6,
		}, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", raw, err)
	}

	root := digitalRoot(n)
	content := fmt.Sprintf("The digital root of %d is %d. In vortex math the doubling cycle runs 1-2-4-8-7-5, with 3, 6 and 9 outside it.", n, root)

	id, err := o.knowledge.Facts().AddItem(&models.FactItem{
		Source: "numerology",
	}, content, []string{"numerology", "digital_root"})
	if err != nil {
		return nil, err
	}

	return &HandlerResponse{
		Content:       content,
		Confidence:    0.85,
		KnowledgeUsed: []string{id},
	}, nil
}

// digitalRoot repeatedly sums decimal digits until one remains.
func digitalRoot(n int64) int64 {
	if n < 0 {
		n = -n
	}
	for n >= 10 {
		sum := int64(0)
		for n > 0 {
			sum += n % 10
			n /= 10
		}
		n = sum
	}
	return n
}

func (o *Orchestrator) handleDefinition(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	word := ""
	if len(req.Match.Captures) > 0 {
		word = strings.ToLower(strings.TrimSpace(req.Match.Captures[0]))
	}
	if word == "" {
		word = lastWordToken(req.Tokens)
	}
	if word == "" {
		return &HandlerResponse{
			Content:    "Which word would you like me to define?",
			Confidence: 0.5,
		}, nil
	}

	// Relookup path: counts the access and may promote a learned entry.
	// Provisional learned entries have no definition yet; fall through to
	// the external lookup for those.
	if entry, ok := o.vocab.Lookup(word); ok && entry.Definition != "" {
		content := fmt.Sprintf("%s: %s", entry.Word, entry.Definition)
		if entry.PartOfSpeech != "" {
			content = fmt.Sprintf("%s (%s): %s", entry.Word, entry.PartOfSpeech, entry.Definition)
		}
		return &HandlerResponse{Content: content, Confidence: 0.9}, nil
	}

	if o.dict != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, o.config.LookupTimeout)
		def, err := o.dict.Lookup(lookupCtx, word)
		cancel()
		if err == nil {
			o.vocab.AddWord(models.VocabularyEntry{
				Word:         def.Word,
				Definition:   def.Definition,
				PartOfSpeech: def.PartOfSpeech,
				Examples:     def.Examples,
				Synonyms:     def.Synonyms,
				Phonetic:     def.Phonetic,
				Source:       models.SourceLearned,
				Confidence:   0.7,
				Timestamp:    time.Now(),
			})
			return &HandlerResponse{
				Content:    fmt.Sprintf("%s: %s", def.Word, def.Definition),
				Confidence: 0.85,
			}, nil
		}
		o.logger.Debug("dictionary lookup failed", zap.Error(err))
	}

	// No definition anywhere: answer softly and keep a provisional entry
	// so the word is recognized next time.
	o.learnWord(word)
	return &HandlerResponse{
		Content:    fmt.Sprintf("I don't have a definition for %q yet, but I've noted it and will keep an eye out.", word),
		Confidence: 0.35,
	}, nil
}

// Personal-info extraction rules, applied in order. Each rule maps a
// capture to a fixed key.
var personalRules = []struct {
	key string
	re  *regexp.Regexp
}{
	{"name", regexp.MustCompile(`(?i)\b(?:my\s+name\s+is|i\s+am\s+called|call\s+me)\s+([A-Za-z]+)`)},
	{"age", regexp.MustCompile(`(?i)\b(?:i\s+am|i'm)\s+(\d{1,3})(?:\s+years?\s+old)?\b`)},
	{"location", regexp.MustCompile(`(?i)\bi\s+live\s+in\s+([A-Za-z][A-Za-z\s]*?)\s*[.!?]?\s*$`)},
	{"likes", regexp.MustCompile(`(?i)\bi\s+(?:like|love)\s+(.+?)\s*[.!?]?\s*$`)},
	{"favorite", regexp.MustCompile(`(?i)\bmy\s+favou?rite\s+(?:\w+\s+)?is\s+(.+?)\s*[.!?]?\s*$`)},
}

func (o *Orchestrator) handlePersonalInfo(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	var used []string
	var noted []string

	for _, rule := range personalRules {
		m := rule.re.FindStringSubmatch(req.Text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}

		id, err := o.knowledge.Personal().AddItem(&models.PersonalInfoItem{
			Key:   rule.key,
			Value: value,
		}, fmt.Sprintf("%s: %s", rule.key, value), []string{rule.key, "personal"})
		if err != nil {
			return nil, err
		}
		used = append(used, id)
		noted = append(noted, fmt.Sprintf("%s is %s", rule.key, value))
	}

	if len(used) == 0 {
		return &HandlerResponse{
			Content:    "Tell me something about yourself and I'll remember it.",
			Confidence: 0.5,
		}, nil
	}

	return &HandlerResponse{
		Content:       fmt.Sprintf("Got it, I'll remember that your %s.", strings.Join(noted, " and your ")),
		Confidence:    0.92,
		KnowledgeUsed: used,
	}, nil
}

func (o *Orchestrator) handleMemoryStorage(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	content := ""
	if len(req.Match.Captures) > 0 {
		content = strings.TrimSpace(req.Match.Captures[0])
	}
	if content == "" {
		return nil, fmt.Errorf("nothing to remember in %q", req.Text)
	}

	id, err := o.knowledge.Facts().AddItem(&models.FactItem{
		Source: "user",
	}, content, []string{"user_memory"})
	if err != nil {
		return nil, err
	}

	return &HandlerResponse{
		Content:       fmt.Sprintf("Noted. I'll remember that %s.", content),
		Confidence:    0.9,
		KnowledgeUsed: []string{id},
	}, nil
}

func (o *Orchestrator) handleGreeting(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	return &HandlerResponse{
		Content:    "Hello! Ask me to define a word, do some arithmetic, or tell me something to remember.",
		Confidence: 0.95,
	}, nil
}

func (o *Orchestrator) handleDiagnostic(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	return &HandlerResponse{
		Content: fmt.Sprintf(
			"Status: %d words in vocabulary, %d knowledge items across %d categories, %d words learned this session.",
			o.vocab.Size(), o.knowledge.TotalItems(), 4, o.WordsLearned()),
		Confidence: 0.9,
	}, nil
}

func (o *Orchestrator) handleCapabilities(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	return &HandlerResponse{
		Content: "I can evaluate arithmetic, define words, remember facts and personal details, " +
			"explain topics from my knowledge base, and report on my own state.",
		Confidence: 0.9,
	}, nil
}

func (o *Orchestrator) handleExplanation(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	topic := ""
	if len(req.Match.Captures) > 0 {
		topic = strings.TrimSpace(req.Match.Captures[0])
	}
	if topic == "" {
		topic = strings.TrimSpace(req.Text)
	}

	results := o.knowledge.SearchAll(topic, 3)
	if len(results) == 0 {
		if entries := o.vocab.SearchWords(topic, 1); len(entries) > 0 {
			return &HandlerResponse{
				Content:    fmt.Sprintf("%s: %s", entries[0].Word, entries[0].Definition),
				Confidence: 0.75,
			}, nil
		}
		return &HandlerResponse{
			Content:    fmt.Sprintf("I don't know much about %s yet. Teach me with \"remember that ...\".", topic),
			Confidence: 0.4,
		}, nil
	}

	var parts []string
	var used []string
	for _, r := range results {
		parts = append(parts, r.Item.Core().Content)
		used = append(used, r.Item.Core().ID)
	}

	return &HandlerResponse{
		Content:       fmt.Sprintf("Here's what I know about %s: %s", topic, strings.Join(parts, " | ")),
		Confidence:    0.8,
		KnowledgeUsed: used,
	}, nil
}

func (o *Orchestrator) handleGeneral(ctx context.Context, req *HandlerRequest) (*HandlerResponse, error) {
	if results := o.knowledge.SearchAll(req.Text, 1); len(results) > 0 {
		return &HandlerResponse{
			Content:       fmt.Sprintf("That reminds me of something I know: %s", results[0].Item.Core().Content),
			Confidence:    0.6,
			KnowledgeUsed: []string{results[0].Item.Core().ID},
		}, nil
	}

	return &HandlerResponse{
		Content:    "I'm not sure what to make of that yet. You can ask me to define words, calculate, or remember things.",
		Confidence: 0.5,
	}, nil
}

func lastWordToken(tokens token.Result) string {
	for i := len(tokens.Tokens) - 1; i >= 0; i-- {
		if tokens.Tokens[i].Type == models.TokenWord {
			return strings.ToLower(tokens.Tokens[i].Text)
		}
	}
	return ""
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}
