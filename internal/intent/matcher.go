// Package intent classifies user utterances against a fixed, ordered
// pattern list. Declaration order is the tie-break priority and part of
// the compatibility contract: do not reorder patterns.
package intent

import (
	"regexp"
	"strings"
)

// Intent labels the classified purpose of an utterance.
type Intent string

const (
	MathCalculation     Intent = "math_calculation"
	TeslaMath           Intent = "tesla_math"
	DefinitionRequest   Intent = "definition_request"
	PersonalInfo        Intent = "personal_info"
	MemoryStorage       Intent = "memory_storage"
	Greeting            Intent = "greeting"
	SystemDiagnostic    Intent = "system_diagnostic"
	CapabilityInquiry   Intent = "capability_inquiry"
	ExplanationRequest  Intent = "explanation_request"
	GeneralConversation Intent = "general_conversation"
)

// fallbackConfidence is used when no pattern matches.
const fallbackConfidence = 0.5

// Pattern binds a matcher to an intent with a base confidence.
type Pattern struct {
	Matcher        *regexp.Regexp
	Intent         Intent
	BaseConfidence float64
}

// Result is a classification outcome. Captures holds the submatches of
// the winning pattern, first capture group onward.
type Result struct {
	Intent     Intent
	Confidence float64
	Captures   []string
}

// defaultPatterns is the ordered classifier list. Arithmetic outranks the
// numerology intent, so a bare "3 6 9" style input is treated as math; the
// numerology intent only fires on its keyword vocabulary.
var defaultPatterns = []Pattern{
	{
		Matcher:        regexp.MustCompile(`(?i)^\s*(?:what\s+is\s+|calculate\s+|compute\s+|solve\s+|eval(?:uate)?\s+)?([-+(]*\d+(?:\.\d+)?(?:\s*[-+*/%^)(]+\s*[-+(]*\d+(?:\.\d+)?[)\s]*)+)\s*[?=]?\s*$`),
		Intent:         MathCalculation,
		BaseConfidence: 0.95,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)\b(?:tesla|vortex|numerology|digital\s+root|sacred\s+number)\b`),
		Intent:         TeslaMath,
		BaseConfidence: 0.85,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)\b(?:what\s+(?:is|are)|what's|define|definition\s+of|meaning\s+of|what\s+does)\s+(?:a\s+|an\s+|the\s+)?([a-z']+)(?:\s+mean)?\s*\??\s*$`),
		Intent:         DefinitionRequest,
		BaseConfidence: 0.85,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)\b(?:my\s+name\s+is|i\s+am\s+called|call\s+me|i\s+am\s+\d+|i'm\s+\d+|i\s+live\s+in|i\s+like|i\s+love|my\s+favou?rite)\b`),
		Intent:         PersonalInfo,
		BaseConfidence: 0.9,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)^\s*(?:remember|memorize|note|don't\s+forget)\s+(?:that\s+)?(.+?)\s*$`),
		Intent:         MemoryStorage,
		BaseConfidence: 0.9,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)^\s*(?:hello|hi|hey|greetings|howdy|good\s+(?:morning|afternoon|evening))\b`),
		Intent:         Greeting,
		BaseConfidence: 0.95,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)\b(?:diagnostic|status\s+report|statistics|stats|how\s+many\s+words|system\s+health)\b`),
		Intent:         SystemDiagnostic,
		BaseConfidence: 0.8,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)\b(?:what\s+can\s+you\s+do|your\s+capabilit|who\s+are\s+you|what\s+do\s+you\s+know|help)\b`),
		Intent:         CapabilityInquiry,
		BaseConfidence: 0.85,
	},
	{
		Matcher:        regexp.MustCompile(`(?i)^\s*(?:explain|tell\s+me\s+about|describe|how\s+does)\b\s*(.*?)\s*\??\s*$`),
		Intent:         ExplanationRequest,
		BaseConfidence: 0.8,
	},
}

// Matcher classifies text against its ordered pattern list.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher creates a matcher over the default pattern list.
func NewMatcher() *Matcher {
	return &Matcher{patterns: defaultPatterns}
}

// NewMatcherWithPatterns creates a matcher over a custom ordered list.
func NewMatcherWithPatterns(patterns []Pattern) *Matcher {
	return &Matcher{patterns: patterns}
}

// Match returns the first pattern hit in declaration order, with its base
// confidence discounted slightly when the match covers little of the
// input. Identical input always yields an identical result.
func (m *Matcher) Match(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Intent: GeneralConversation, Confidence: fallbackConfidence}
	}

	for _, p := range m.patterns {
		loc := p.Matcher.FindStringSubmatchIndex(trimmed)
		if loc == nil {
			continue
		}

		coverage := float64(loc[1]-loc[0]) / float64(len(trimmed))
		confidence := p.BaseConfidence * (0.85 + 0.15*coverage)
		if confidence > p.BaseConfidence {
			confidence = p.BaseConfidence
		}

		groups := p.Matcher.FindStringSubmatch(trimmed)
		var captures []string
		if len(groups) > 1 {
			captures = groups[1:]
		}
		return Result{Intent: p.Intent, Confidence: confidence, Captures: captures}
	}

	return Result{Intent: GeneralConversation, Confidence: fallbackConfidence}
}
