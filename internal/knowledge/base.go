package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/models"
)

// Base aggregates the category stores behind one surface, mirroring how a
// memory service fronts its individual stores.
type Base struct {
	math     *Store
	facts    *Store
	personal *Store
	coding   *Store
	logger   *zap.Logger
}

// NewBase creates the knowledge base with all category stores empty.
func NewBase(logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		math:     NewStore(CategoryMath),
		facts:    NewStore(CategoryFacts),
		personal: NewStore(CategoryPersonal),
		coding:   NewStore(CategoryCoding),
		logger:   logger,
	}
}

// Math returns the math category store.
func (b *Base) Math() *Store { return b.math }

// Facts returns the facts category store.
func (b *Base) Facts() *Store { return b.facts }

// Personal returns the personal-info category store.
func (b *Base) Personal() *Store { return b.personal }

// Coding returns the coding category store.
func (b *Base) Coding() *Store { return b.coding }

func (b *Base) stores() []*Store {
	return []*Store{b.math, b.facts, b.personal, b.coding}
}

// SearchAll queries every category store and returns the merged results,
// sorted descending by score, capped at limit.
func (b *Base) SearchAll(query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 5
	}

	var merged []SearchResult
	for _, store := range b.stores() {
		merged = append(merged, store.Search(query, limit)...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Feedback routes a feedback event to whichever store owns the item.
func (b *Base) Feedback(id string, fb Feedback) error {
	for _, store := range b.stores() {
		err := store.UpdateReliability(id, fb)
		if err == nil {
			return nil
		}
		if err != ErrNotFound {
			return err
		}
	}
	return ErrNotFound
}

// Get returns an item by id from whichever store owns it.
func (b *Base) Get(id string) (Item, error) {
	for _, store := range b.stores() {
		if item, err := store.Get(id); err == nil {
			return item, nil
		}
	}
	return nil, ErrNotFound
}

// TotalItems returns the item count across all categories.
func (b *Base) TotalItems() int {
	total := 0
	for _, store := range b.stores() {
		total += store.Count()
	}
	return total
}

// seedRecord is one entry of a knowledge seed document: a JSON map from a
// concept key to its record. Documents for different categories share the
// shape; which fields are populated varies.
type seedRecord struct {
	Content  string   `json:"content"`
	Formula  string   `json:"formula"`
	Language string   `json:"language"`
	Snippet  string   `json:"snippet"`
	Source   string   `json:"source"`
	Examples []string `json:"examples"`
	Tags     []string `json:"tags"`
}

// LoadSeed reads one knowledge seed document into the store for category.
// Returns the number of items loaded.
func (b *Base) LoadSeed(category string, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read seed document: %w", err)
	}

	var doc map[string]seedRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse seed document: %w", err)
	}

	loaded := 0
	for key, rec := range doc {
		content := rec.Content
		if content == "" {
			content = rec.Formula
		}
		if content == "" {
			continue
		}

		tags := append([]string{strings.ToLower(key)}, rec.Tags...)
		var addErr error
		switch category {
		case CategoryMath:
			_, addErr = b.math.AddItem(&models.MathItem{
				Formula:  rec.Formula,
				Examples: rec.Examples,
			}, content, tags)
		case CategoryCoding:
			_, addErr = b.coding.AddItem(&models.CodingItem{
				Language: rec.Language,
				Snippet:  rec.Snippet,
			}, content, tags)
		default:
			_, addErr = b.facts.AddItem(&models.FactItem{
				Source: rec.Source,
			}, content, tags)
		}
		if addErr != nil {
			continue
		}
		loaded++
	}
	return loaded, nil
}

// LoadSeedFile loads one knowledge seed document from disk. Missing or
// malformed files are logged and skipped, never fatal.
func (b *Base) LoadSeedFile(category, path string) int {
	f, err := os.Open(path)
	if err != nil {
		b.logger.Warn("skipping knowledge seed file",
			zap.String("path", path), zap.Error(err))
		return 0
	}
	defer f.Close()

	n, err := b.LoadSeed(category, f)
	if err != nil {
		b.logger.Warn("skipping malformed knowledge seed file",
			zap.String("path", path), zap.Error(err))
		return 0
	}
	b.logger.Info("loaded knowledge seed",
		zap.String("category", category), zap.String("path", path), zap.Int("items", n))
	return n
}

// LoadSeedDir loads the conventional seed documents from dir:
// mathematics.json, facts.json and coding.json. Absent files are skipped.
func (b *Base) LoadSeedDir(dir string) int {
	total := 0
	for file, category := range map[string]string{
		"mathematics.json": CategoryMath,
		"facts.json":       CategoryFacts,
		"coding.json":      CategoryCoding,
	} {
		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		total += b.LoadSeedFile(category, path)
	}
	return total
}
