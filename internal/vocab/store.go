// Package vocab implements the case-insensitive word registry shared by
// the tokenizer and the pipeline. Words are stored and compared lowercase.
package vocab

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/models"
)

// promoteAfter is the relookup frequency at which a learned entry's
// confidence is upgraded.
const (
	promoteAfter      = 3
	promotedConfidence = 0.6
)

// Store is the process-wide vocabulary registry. All mutation goes through
// its methods; writers are serialized by the internal lock.
type Store struct {
	mu     sync.RWMutex
	words  map[string]*models.VocabularyEntry
	order  []string // insertion order, for deterministic search results
	logger *zap.Logger
}

// NewStore creates an empty vocabulary store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		words:  make(map[string]*models.VocabularyEntry),
		logger: logger,
	}
}

// GetWord returns the entry for word, case-insensitively. It has no side
// effects; use Lookup for relookup accounting.
func (s *Store) GetWord(word string) (*models.VocabularyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.words[strings.ToLower(word)]
	if !ok {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

// Lookup returns the entry for word and records the relookup: frequency is
// incremented and a learned entry that has been seen often enough gets its
// confidence upgraded.
func (s *Store) Lookup(word string) (*models.VocabularyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.words[strings.ToLower(word)]
	if !ok {
		return nil, false
	}

	entry.Frequency++
	if entry.Source == models.SourceLearned &&
		entry.Frequency >= promoteAfter &&
		entry.Confidence < promotedConfidence {
		entry.Confidence = promotedConfidence
	}

	cp := *entry
	return &cp, true
}

// AddWord inserts or overwrites an entry. The key is always lowercased.
func (s *Store) AddWord(entry models.VocabularyEntry) {
	key := strings.ToLower(strings.TrimSpace(entry.Word))
	if key == "" {
		return
	}
	entry.Word = key
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Frequency < 1 {
		entry.Frequency = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.words[key]; !exists {
		s.order = append(s.order, key)
	}
	s.words[key] = &entry
}

// RemoveWord deletes an entry. This is the only way Size decreases.
func (s *Store) RemoveWord(word string) bool {
	key := strings.ToLower(word)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.words[key]; !ok {
		return false
	}
	delete(s.words, key)
	for i, w := range s.order {
		if w == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// SearchWords returns up to limit entries whose word, definition, examples
// or synonyms contain query as a substring, in insertion order.
func (s *Store) SearchWords(query string, limit int) []models.VocabularyEntry {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []models.VocabularyEntry
	for _, key := range s.order {
		entry := s.words[key]
		if entryMatches(entry, q) {
			results = append(results, *entry)
			if len(results) >= limit {
				break
			}
		}
	}
	return results
}

func entryMatches(entry *models.VocabularyEntry, q string) bool {
	if strings.Contains(entry.Word, q) {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Definition), q) {
		return true
	}
	for _, ex := range entry.Examples {
		if strings.Contains(strings.ToLower(ex), q) {
			return true
		}
	}
	for _, syn := range entry.Synonyms {
		if strings.Contains(strings.ToLower(syn), q) {
			return true
		}
	}
	return false
}

// Size returns the number of registered words.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Has reports whether word is registered, case-insensitively.
func (s *Store) Has(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// Entries returns a snapshot of all entries in insertion order.
func (s *Store) Entries() []models.VocabularyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.VocabularyEntry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.words[key])
	}
	return out
}

// LearnedEntries returns a snapshot of entries with source "learned",
// used by the persistence collaborator.
func (s *Store) LearnedEntries() []models.VocabularyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VocabularyEntry
	for _, key := range s.order {
		if s.words[key].Source == models.SourceLearned {
			out = append(out, *s.words[key])
		}
	}
	return out
}
