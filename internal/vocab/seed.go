package vocab

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/models"
)

// seedEntry mirrors one record of a seed vocabulary document: a JSON map
// from word to metadata.
type seedEntry struct {
	Definition   string   `json:"definition"`
	PartOfSpeech string   `json:"partOfSpeech"`
	Examples     []string `json:"examples"`
	Synonyms     []string `json:"synonyms"`
	Antonyms     []string `json:"antonyms"`
	Phonetic     string   `json:"phonetic"`
	Category     string   `json:"category"`
}

// LoadSeed reads a seed vocabulary document and registers every entry with
// source "seed". Returns the number of words loaded.
func (s *Store) LoadSeed(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read seed document: %w", err)
	}

	var doc map[string]seedEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse seed document: %w", err)
	}

	now := time.Now()
	loaded := 0
	for word, entry := range doc {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" || entry.Definition == "" {
			continue
		}
		s.AddWord(models.VocabularyEntry{
			Word:         word,
			Definition:   entry.Definition,
			PartOfSpeech: entry.PartOfSpeech,
			Examples:     entry.Examples,
			Synonyms:     entry.Synonyms,
			Antonyms:     entry.Antonyms,
			Phonetic:     entry.Phonetic,
			Category:     entry.Category,
			Source:       models.SourceSeed,
			Confidence:   1.0,
			Frequency:    1,
			Timestamp:    now,
		})
		loaded++
	}
	return loaded, nil
}

// LoadSeedFile loads one seed document from disk. Missing or malformed
// files are logged and skipped; startup must not abort on bad seed data.
func (s *Store) LoadSeedFile(path string) int {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("skipping vocabulary seed file",
			zap.String("path", path), zap.Error(err))
		return 0
	}
	defer f.Close()

	n, err := s.LoadSeed(f)
	if err != nil {
		s.logger.Warn("skipping malformed vocabulary seed file",
			zap.String("path", path), zap.Error(err))
		return 0
	}
	s.logger.Info("loaded vocabulary seed",
		zap.String("path", path), zap.Int("words", n))
	return n
}

// LoadSeedDir loads every vocabulary*.json document in dir. Knowledge
// seed documents live in the same directory under other names.
func (s *Store) LoadSeedDir(dir string) int {
	paths, err := filepath.Glob(filepath.Join(dir, "vocabulary*.json"))
	if err != nil {
		s.logger.Warn("bad seed directory", zap.String("dir", dir), zap.Error(err))
		return 0
	}

	total := 0
	for _, path := range paths {
		total += s.LoadSeedFile(path)
	}
	return total
}

// basicWords are common function words registered at startup so the
// tokenizer recognizes everyday text even with no seed files present.
var basicWords = map[string]string{
	"the": "article", "a": "article", "an": "article",
	"is": "verb", "are": "verb", "was": "verb", "am": "verb", "be": "verb",
	"i": "pronoun", "you": "pronoun", "my": "pronoun", "me": "pronoun",
	"it": "pronoun", "we": "pronoun", "they": "pronoun",
	"what": "pronoun", "who": "pronoun", "how": "adverb", "why": "adverb",
	"and": "conjunction", "or": "conjunction", "but": "conjunction",
	"to": "preposition", "of": "preposition", "in": "preposition",
	"on": "preposition", "for": "preposition", "with": "preposition",
	"name": "noun", "not": "adverb", "no": "adverb", "yes": "adverb",
	"hello": "interjection", "hi": "interjection", "hey": "interjection",
	"please": "adverb", "thanks": "noun", "can": "verb", "do": "verb",
	"tell": "verb", "remember": "verb", "know": "verb", "like": "verb",
	"mean": "verb", "calculate": "verb", "explain": "verb",
}

// LoadBasic registers the built-in basic word list with source "basic".
func (s *Store) LoadBasic() int {
	now := time.Now()
	for word, pos := range basicWords {
		if s.Has(word) {
			continue
		}
		s.AddWord(models.VocabularyEntry{
			Word:         word,
			Definition:   "common word",
			PartOfSpeech: pos,
			Source:       models.SourceBasic,
			Confidence:   0.9,
			Frequency:    1,
			Timestamp:    now,
		})
	}
	return len(basicWords)
}
