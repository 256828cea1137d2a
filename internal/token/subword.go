package token

import (
	"strings"
	"sync"

	"github.com/synaptiq/synaptiq/internal/models"
)

// Reserved codec ids.
const (
	PadID   = 0
	UnkID   = 1
	StartID = 2
	EndID   = 3
)

const unkMarker = "<unk>"

// Subword prefix search bounds: longest prefix first, down to two runes.
const (
	maxPrefixLen = 8
	minPrefixLen = 2
)

// Codec maps token sequences to fixed-length integer sequences and back.
// Ids are assigned on first encounter; unknown words fall back to subword
// units found in the vocabulary.
type Codec struct {
	mu     sync.Mutex
	vocab  Vocabulary
	maxLen int
	ids    map[string]int
	units  []string // index == id; first four slots are reserved
}

// NewCodec creates a codec with the given maximum sequence length.
func NewCodec(vocab Vocabulary, maxLen int) *Codec {
	if maxLen < 4 {
		maxLen = 4
	}
	return &Codec{
		vocab:  vocab,
		maxLen: maxLen,
		ids:    make(map[string]int),
		units:  []string{"<pad>", unkMarker, "<start>", "<end>"},
	}
}

// Encode converts text into a fixed-length id sequence framed by START and
// END and padded with PAD.
func (c *Codec) Encode(text string) []int {
	units := c.split(text)

	c.mu.Lock()
	ids := make([]int, 0, len(units)+2)
	ids = append(ids, StartID)
	for _, u := range units {
		ids = append(ids, c.idFor(u))
	}
	ids = append(ids, EndID)
	c.mu.Unlock()

	if len(ids) > c.maxLen {
		ids = ids[:c.maxLen]
		ids[c.maxLen-1] = EndID
	}
	for len(ids) < c.maxLen {
		ids = append(ids, PadID)
	}
	return ids
}

// Decode maps ids back to text: PAD, START and END are dropped, remaining
// units join with spaces, and out-of-range ids render as the UNK marker.
func (c *Codec) Decode(ids []int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var units []string
	for _, id := range ids {
		switch id {
		case PadID, StartID, EndID:
			continue
		}
		if id < 0 || id >= len(c.units) {
			units = append(units, unkMarker)
			continue
		}
		units = append(units, c.units[id])
	}
	return strings.Join(units, " ")
}

// idFor returns the id for a unit, assigning the next free id on first
// encounter. Caller holds the lock.
func (c *Codec) idFor(unit string) int {
	if id, ok := c.ids[unit]; ok {
		return id
	}
	id := len(c.units)
	c.ids[unit] = id
	c.units = append(c.units, unit)
	return id
}

// split lowercases text and breaks it into codec units: known words stay
// whole, unknown words go through the subword fallback, numbers and
// punctuation are kept as-is, whitespace is dropped.
func (c *Codec) split(text string) []string {
	tk := New(c.vocab)
	result := tk.Tokenize(strings.ToLower(text))

	var units []string
	for _, tok := range result.Tokens {
		switch tok.Type {
		case models.TokenWhitespace:
			continue
		case models.TokenWord:
			if c.vocab != nil && c.vocab.Has(tok.Text) {
				units = append(units, tok.Text)
			} else {
				units = append(units, c.subwords(tok.Text)...)
			}
		default:
			units = append(units, tok.Text)
		}
	}
	return units
}

// subwords splits an unknown word by repeatedly taking the longest prefix
// (length 8 down to 2) present in the vocabulary; when none matches, the
// first character becomes its own unit and splitting continues on the rest.
func (c *Codec) subwords(word string) []string {
	var units []string
	runes := []rune(word)

	for len(runes) > 0 {
		matched := false
		if c.vocab != nil {
			longest := maxPrefixLen
			if len(runes) < longest {
				longest = len(runes)
			}
			for l := longest; l >= minPrefixLen; l-- {
				prefix := string(runes[:l])
				if c.vocab.Has(prefix) {
					units = append(units, prefix)
					runes = runes[l:]
					matched = true
					break
				}
			}
		}
		if !matched {
			units = append(units, string(runes[:1]))
			runes = runes[1:]
		}
	}
	return units
}
