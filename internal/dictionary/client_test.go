package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(serverURL string) *Client {
	return NewClient(&Config{
		BaseURL:        serverURL,
		Timeout:        2 * time.Second,
		RequestsPerMin: 600,
	}, zap.NewNop())
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/serendipity", r.URL.Path)
		w.Write([]byte(`[{
			"word": "serendipity",
			"phonetic": "/ˌsɛɹ.ənˈdɪp.ɪ.ti/",
			"meanings": [{
				"partOfSpeech": "noun",
				"definitions": [{"definition": "a fortunate accident", "example": "pure serendipity"}],
				"synonyms": ["luck"]
			}]
		}]`))
	}))
	defer srv.Close()

	def, err := testClient(srv.URL).Lookup(context.Background(), "Serendipity")
	require.NoError(t, err)
	assert.Equal(t, "serendipity", def.Word)
	assert.Equal(t, "a fortunate accident", def.Definition)
	assert.Equal(t, "noun", def.PartOfSpeech)
	assert.Equal(t, []string{"pure serendipity"}, def.Examples)
	assert.Equal(t, []string{"luck"}, def.Synonyms)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "zzzzz")
	assert.Error(t, err)
}

func TestLookupMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "word")
	assert.Error(t, err)
}

func TestLookupEmptyEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "word")
	assert.Error(t, err)
}

func TestLookupServerUnreachable(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	_, err := c.Lookup(context.Background(), "word")
	assert.Error(t, err)
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(&Config{
		BaseURL:        srv.URL,
		Timeout:        20 * time.Millisecond,
		RequestsPerMin: 600,
	}, zap.NewNop())

	_, err := c.Lookup(context.Background(), "slow")
	assert.Error(t, err)
}

func TestLookupRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"word":"x","meanings":[{"partOfSpeech":"noun","definitions":[{"definition":"d"}]}]}]`))
	}))
	defer srv.Close()

	c := NewClient(&Config{
		BaseURL:        srv.URL,
		Timeout:        time.Second,
		RequestsPerMin: 6, // burst of 1
	}, zap.NewNop())

	_, err := c.Lookup(context.Background(), "first")
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "second")
	assert.Error(t, err)
}

func TestLookupEmptyWord(t *testing.T) {
	c := testClient("http://unused")
	_, err := c.Lookup(context.Background(), "   ")
	assert.Error(t, err)
}
