package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(testVocab(), 16)

	ids := c.Encode("hello world")
	require.Len(t, ids, 16)
	assert.Equal(t, StartID, ids[0])

	decoded := c.Decode(ids)
	assert.Equal(t, "hello world", decoded)
}

func TestCodecFraming(t *testing.T) {
	c := NewCodec(testVocab(), 8)
	ids := c.Encode("hello")

	require.Len(t, ids, 8)
	assert.Equal(t, StartID, ids[0])
	assert.Equal(t, EndID, ids[2])
	for _, id := range ids[3:] {
		assert.Equal(t, PadID, id)
	}
}

func TestCodecTruncation(t *testing.T) {
	c := NewCodec(testVocab(), 4)
	ids := c.Encode("hello world hello world hello")

	require.Len(t, ids, 4)
	assert.Equal(t, StartID, ids[0])
	assert.Equal(t, EndID, ids[3], "truncated sequence keeps its END frame")
}

func TestCodecSubwordFallback(t *testing.T) {
	// "underdog": "un" and "der" are in the vocabulary, "dog" is not,
	// so it splits into un / der / d / o / g.
	c := NewCodec(testVocab(), 16)
	ids := c.Encode("underdog")

	decoded := c.Decode(ids)
	assert.Equal(t, "un der d o g", decoded)
}

func TestCodecStableIDs(t *testing.T) {
	c := NewCodec(testVocab(), 16)
	first := c.Encode("hello world")
	second := c.Encode("hello world")
	assert.Equal(t, first, second)
}

func TestDecodeUnknownID(t *testing.T) {
	c := NewCodec(testVocab(), 8)
	out := c.Decode([]int{StartID, 9999, EndID, PadID})
	assert.Equal(t, "<unk>", out)
}
