// Package knowledge implements the categorized, reliability-scored
// fact/concept stores and the aggregate base over them.
package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synaptiq/synaptiq/internal/models"
)

// Knowledge categories.
const (
	CategoryMath     = "math"
	CategoryFacts    = "facts"
	CategoryPersonal = "personal_info"
	CategoryCoding   = "coding"
)

// Feedback is the sentiment applied to a knowledge item.
type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// reliabilityStep is the fixed reliability delta per feedback event.
const reliabilityStep = 0.1

// Search scoring weights. These are a compatibility contract: results are
// comparable across deployments only because every store scores the same
// way.
const (
	weightContent     = 0.4
	weightTag         = 0.3
	weightCategory    = 0.2
	weightReliability = 0.7
	weightRecency     = 0.3
)

// ErrNotFound is returned when an item id is not present in a store.
var ErrNotFound = fmt.Errorf("knowledge item not found")

// Item is the closed set of knowledge variants. Every variant exposes the
// shared record for scoring and reliability updates through Core.
type Item interface {
	Core() *models.KnowledgeItem
}

// SearchResult pairs an item with its computed score.
type SearchResult struct {
	Item  Item
	Score float64
}

// Store holds one category of knowledge items in memory. Reliability is
// mutated only through UpdateReliability; the clamp and the frequency
// increment are atomic as a pair under the store lock.
type Store struct {
	mu       sync.RWMutex
	category string
	items    map[string]Item
	order    []string
}

// NewStore creates an empty category store.
func NewStore(category string) *Store {
	return &Store{
		category: category,
		items:    make(map[string]Item),
	}
}

// Category returns the store's category label.
func (s *Store) Category() string { return s.category }

// Add creates a plain knowledge item with the initial reliability, recency
// and frequency contract and returns its id.
func (s *Store) Add(content string, tags []string) (string, error) {
	item := &models.KnowledgeItem{}
	if err := s.initCore(item, content, tags); err != nil {
		return "", err
	}
	return s.insert(item)
}

// AddItem registers a category variant. Its embedded record is initialized
// the same way Add does.
func (s *Store) AddItem(item Item, content string, tags []string) (string, error) {
	if item == nil {
		return "", fmt.Errorf("nil knowledge item")
	}
	if err := s.initCore(item.Core(), content, tags); err != nil {
		return "", err
	}
	return s.insert(item)
}

func (s *Store) initCore(core *models.KnowledgeItem, content string, tags []string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("empty knowledge content")
	}
	core.ID = uuid.NewString()
	core.Content = content
	core.Category = s.category
	core.Reliability = 0.5
	core.Recency = 1.0
	core.Frequency = 1
	core.Tags = tags
	core.Timestamp = time.Now()
	return nil
}

func (s *Store) insert(item Item) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := item.Core().ID
	s.items[id] = item
	s.order = append(s.order, id)
	return id, nil
}

// Get returns the item with the given id.
func (s *Store) Get(id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

// UpdateReliability applies one feedback event: reliability moves by the
// fixed step, clamps to [0,1], and frequency increments.
func (s *Store) UpdateReliability(id string, fb Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}

	core := item.Core()
	switch fb {
	case FeedbackPositive:
		core.Reliability += reliabilityStep
	case FeedbackNegative:
		core.Reliability -= reliabilityStep
	default:
		return fmt.Errorf("unknown feedback %q", fb)
	}
	core.Reliability = clamp01(core.Reliability)
	core.Frequency++
	return nil
}

// Search scores every item against query and returns the top limit results
// with positive scores, sorted descending by score.
func (s *Store) Search(query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 5
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.RLock()
	var results []SearchResult
	for _, id := range s.order {
		item := s.items[id]
		if score := score(item.Core(), q); score > 0 {
			results = append(results, SearchResult{Item: item, Score: score})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Count returns the number of items in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a snapshot of all items in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// score computes the relevance of one item for a lowercased query:
//
//	score = 0.4*[content match] + 0.3*sum(tag matches) + 0.2*[category match]
//	score *= reliability*0.7 + recency*0.3
func score(core *models.KnowledgeItem, q string) float64 {
	v := 0.0
	if strings.Contains(strings.ToLower(core.Content), q) {
		v += weightContent
	}
	for _, tag := range core.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			v += weightTag
		}
	}
	if strings.Contains(strings.ToLower(core.Category), q) {
		v += weightCategory
	}
	return v * (core.Reliability*weightReliability + core.Recency*weightRecency)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
