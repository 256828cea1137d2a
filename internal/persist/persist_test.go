package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Load(ctx, KeyConversation)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, KeyConversation, []byte(`[{"id":"1"}]`)))

	got, err := s.Load(ctx, KeyConversation)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))

	// Overwrite semantics.
	require.NoError(t, s.Save(ctx, KeyConversation, []byte(`[]`)))
	got, _ = s.Load(ctx, KeyConversation)
	assert.Equal(t, `[]`, string(got))

	assert.NoError(t, s.Close())
}

func TestMemoryReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "k", []byte("abc")))
	got, _ := s.Load(ctx, "k")
	got[0] = 'X'

	again, _ := s.Load(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestBadgerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping disk-backed store test in short mode")
	}

	dir := t.TempDir()
	s, err := NewBadger(filepath.Join(dir, "state"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	_, err = s.Load(ctx, KeyVocabulary)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, KeyVocabulary, []byte(`{"word":"x"}`)))

	got, err := s.Load(ctx, KeyVocabulary)
	require.NoError(t, err)
	assert.Equal(t, `{"word":"x"}`, string(got))
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping disk-backed store test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "state")
	ctx := context.Background()

	s, err := NewBadger(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, KeyCounters, []byte(`{"learned":7}`)))
	require.NoError(t, s.Close())

	s, err = NewBadger(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx, KeyCounters)
	require.NoError(t, err)
	assert.Equal(t, `{"learned":7}`, string(got))
}

// TestRedisRoundTrip needs a reachable Redis; it is skipped when the
// connection fails so the suite stays hermetic.
func TestRedisRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s, err := NewRedis(RedisConfig{Addr: "localhost:6379"})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "test:roundtrip", []byte("value")))

	got, err := s.Load(ctx, "test:roundtrip")
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))
}
