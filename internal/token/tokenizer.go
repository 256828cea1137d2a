// Package token turns raw text into a classified token stream annotated
// with vocabulary metadata, plus a subword codec for the integer
// encode/decode path.
package token

import (
	"regexp"
	"unicode/utf8"

	"github.com/synaptiq/synaptiq/internal/models"
)

// Vocabulary is the read-only view of the word registry the tokenizer
// needs. Lookups must be side-effect free.
type Vocabulary interface {
	GetWord(word string) (*models.VocabularyEntry, bool)
	Has(word string) bool
}

// Per-type confidence values. Word confidence gets a metadata bonus when
// vocabulary annotations attach, capped at 1.0.
const (
	confWordKnown   = 0.9
	confWordUnknown = 0.6
	confNumber      = 0.95
	confPunctuation = 0.99
	confWhitespace  = 1.0
	confUnknown     = 0.1
	metadataBonus   = 0.2
)

// Matchers are tried in fixed priority order, each anchored at the start
// of the remaining input; the first match wins and consumes its length.
var (
	numberRe     = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?`)
	wordRe       = regexp.MustCompile(`^[A-Za-z]+(?:'[A-Za-z]+)?`)
	punctRe      = regexp.MustCompile("^[.,!?;:'\"()\\[\\]{}<>@#$%^&*\\-+/=_~`|\\\\]")
	whitespaceRe = regexp.MustCompile(`^[ \t\r\n]+`)
)

// Result is the outcome of tokenizing one input string.
type Result struct {
	Tokens      []models.Token `json:"tokens"`
	TotalTokens int            `json:"total_tokens"`
	Confidence  float64        `json:"confidence"`
}

// Tokenizer classifies raw text into typed tokens.
type Tokenizer struct {
	vocab Vocabulary
}

// New creates a tokenizer over the given vocabulary. A nil vocabulary is
// allowed; every word then scores as unknown-word confidence.
func New(vocab Vocabulary) *Tokenizer {
	return &Tokenizer{vocab: vocab}
}

// Tokenize scans text left-to-right and classifies every span. The token
// texts concatenated in order reproduce text exactly.
func (t *Tokenizer) Tokenize(text string) Result {
	if text == "" {
		return Result{Confidence: 0}
	}

	var tokens []models.Token
	sum := 0.0
	pos := 0

	for pos < len(text) {
		rest := text[pos:]
		tok := t.match(rest)
		tok.Position = pos
		tok.Length = len(tok.Text)
		tokens = append(tokens, tok)
		sum += tok.Confidence
		pos += tok.Length
	}

	return Result{
		Tokens:      tokens,
		TotalTokens: len(tokens),
		Confidence:  sum / float64(len(tokens)),
	}
}

func (t *Tokenizer) match(rest string) models.Token {
	if m := numberRe.FindString(rest); m != "" {
		return models.Token{Text: m, Type: models.TokenNumber, Confidence: confNumber}
	}
	if m := wordRe.FindString(rest); m != "" {
		return t.wordToken(m)
	}
	if m := punctRe.FindString(rest); m != "" {
		return models.Token{Text: m, Type: models.TokenPunctuation, Confidence: confPunctuation}
	}
	if m := whitespaceRe.FindString(rest); m != "" {
		return models.Token{Text: m, Type: models.TokenWhitespace, Confidence: confWhitespace}
	}

	// No matcher fired: consume exactly one rune as unknown.
	_, size := utf8.DecodeRuneInString(rest)
	if size == 0 {
		size = 1
	}
	return models.Token{Text: rest[:size], Type: models.TokenUnknown, Confidence: confUnknown}
}

func (t *Tokenizer) wordToken(text string) models.Token {
	tok := models.Token{Text: text, Type: models.TokenWord, Confidence: confWordUnknown}
	if t.vocab == nil {
		return tok
	}

	entry, ok := t.vocab.GetWord(text)
	if !ok {
		return tok
	}

	tok.Confidence = confWordKnown
	if entry.Definition != "" || entry.PartOfSpeech != "" {
		tok.Metadata = &models.WordMetadata{
			PartOfSpeech: entry.PartOfSpeech,
			Definition:   entry.Definition,
			Synonyms:     entry.Synonyms,
			Frequency:    entry.Frequency,
		}
		tok.Confidence += metadataBonus
		if tok.Confidence > 1.0 {
			tok.Confidence = 1.0
		}
	}
	return tok
}
