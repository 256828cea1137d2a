package models

import "time"

// TokenType classifies a lexical token produced by the tokenizer.
type TokenType string

const (
	TokenWord        TokenType = "word"
	TokenNumber      TokenType = "number"
	TokenPunctuation TokenType = "punctuation"
	TokenWhitespace  TokenType = "whitespace"
	TokenUnknown     TokenType = "unknown"
)

// WordMetadata carries vocabulary annotations attached to word tokens.
type WordMetadata struct {
	PartOfSpeech string   `json:"part_of_speech,omitempty"`
	Definition   string   `json:"definition,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Frequency    int      `json:"frequency,omitempty"`
}

// Token is a single classified span of input text.
// Tokens are produced left-to-right and non-overlapping; concatenating
// Text in order reproduces the original input exactly.
type Token struct {
	Text       string        `json:"text"`
	Type       TokenType     `json:"type"`
	Position   int           `json:"position"`
	Length     int           `json:"length"`
	Confidence float64       `json:"confidence"`
	Metadata   *WordMetadata `json:"metadata,omitempty"`
}

// EntrySource records how a vocabulary entry came to exist.
type EntrySource string

const (
	SourceSeed    EntrySource = "seed"
	SourceBasic   EntrySource = "basic"
	SourceLearned EntrySource = "learned"
)

// VocabularyEntry is a registered word. Word is always stored lowercase
// and serves as the unique key.
type VocabularyEntry struct {
	Word         string      `json:"word"`
	Definition   string      `json:"definition"`
	PartOfSpeech string      `json:"part_of_speech"`
	Examples     []string    `json:"examples,omitempty"`
	Synonyms     []string    `json:"synonyms,omitempty"`
	Antonyms     []string    `json:"antonyms,omitempty"`
	Phonetic     string      `json:"phonetic,omitempty"`
	Frequency    int         `json:"frequency"`
	Source       EntrySource `json:"source"`
	Confidence   float64     `json:"confidence"`
	Timestamp    time.Time   `json:"timestamp"`
	Category     string      `json:"category,omitempty"`
}

// KnowledgeItem is a reliability-scored fact/concept record shared by all
// knowledge categories. Reliability is always clamped to [0,1].
type KnowledgeItem struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	Reliability float64   `json:"reliability"`
	Recency     float64   `json:"recency"`
	Frequency   int       `json:"frequency"`
	Tags        []string  `json:"tags,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Core returns the shared knowledge record. Category variants inherit it
// through embedding, giving every variant the same scoring and
// reliability-update surface.
func (k *KnowledgeItem) Core() *KnowledgeItem { return k }

// MathItem is a knowledge item in the math category.
type MathItem struct {
	KnowledgeItem
	Formula  string   `json:"formula,omitempty"`
	Examples []string `json:"examples,omitempty"`
}

// FactItem is a knowledge item in the facts category.
type FactItem struct {
	KnowledgeItem
	Source string `json:"source,omitempty"`
}

// PersonalInfoItem is a knowledge item holding an extracted key/value pair
// about the user.
type PersonalInfoItem struct {
	KnowledgeItem
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CodingItem is a knowledge item in the coding category.
type CodingItem struct {
	KnowledgeItem
	Language string `json:"language,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// ThoughtNode is one append-only trace entry recorded per pipeline
// transition. Traces explain how a response was produced; they never
// influence the outcome.
type ThoughtNode struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is a single turn in the conversation history.
type ConversationMessage struct {
	ID            string    `json:"id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	Confidence    float64   `json:"confidence,omitempty"`
	Intent        string    `json:"intent,omitempty"`
	KnowledgeUsed []string  `json:"knowledge_used,omitempty"`
}

// Stats summarizes pipeline activity for the diagnostics surface.
type Stats struct {
	MessagesProcessed int           `json:"messages_processed"`
	WordsLearned      int           `json:"words_learned"`
	VocabularySize    int           `json:"vocabulary_size"`
	KnowledgeItems    int           `json:"knowledge_items"`
	AvgConfidence     float64       `json:"avg_confidence"`
	Uptime            time.Duration `json:"uptime"`
}
