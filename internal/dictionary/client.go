// Package dictionary is the external word-lookup collaborator. Lookups
// are best effort: every failure mode comes back as an error the pipeline
// turns into a "no definition found" response, never a hard failure.
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Definition is the normalized lookup result.
type Definition struct {
	Word         string   `json:"word"`
	Definition   string   `json:"definition"`
	PartOfSpeech string   `json:"part_of_speech"`
	Examples     []string `json:"examples,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Phonetic     string   `json:"phonetic,omitempty"`
}

// Config holds dictionary client configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerMin int
}

// DefaultConfig returns the default dictionary configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.dictionaryapi.dev/api/v2/entries/en",
		Timeout:        3 * time.Second,
		RequestsPerMin: 30,
	}
}

// Client looks words up against a dictionaryapi.dev-style endpoint, with a
// bounded per-request timeout and a token-bucket rate limit.
type Client struct {
	config  *Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a dictionary client.
func NewClient(config *Config, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rps := float64(config.RequestsPerMin) / 60.0
	burst := config.RequestsPerMin / 6
	if burst < 1 {
		burst = 1
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// apiMeaning mirrors one meaning block of the upstream response.
type apiMeaning struct {
	PartOfSpeech string `json:"partOfSpeech"`
	Definitions  []struct {
		Definition string `json:"definition"`
		Example    string `json:"example"`
	} `json:"definitions"`
	Synonyms []string `json:"synonyms"`
}

// apiEntry mirrors one entry of the upstream response array.
type apiEntry struct {
	Word     string       `json:"word"`
	Phonetic string       `json:"phonetic"`
	Meanings []apiMeaning `json:"meanings"`
}

// Lookup fetches the definition of word. The call is bounded by the
// configured timeout and by ctx, whichever ends first.
func (c *Client) Lookup(ctx context.Context, word string) (*Definition, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, fmt.Errorf("empty word")
	}

	if !c.limiter.Allow() {
		return nil, fmt.Errorf("dictionary rate limit exceeded")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + url.PathEscape(word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build dictionary request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dictionary lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary returned status %d for %q", resp.StatusCode, word)
	}

	var entries []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode dictionary response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no dictionary entry for %q", word)
	}

	def := normalize(word, entries[0])
	if def.Definition == "" {
		return nil, fmt.Errorf("dictionary entry for %q has no definition", word)
	}

	c.logger.Debug("dictionary lookup",
		zap.String("word", word),
		zap.Duration("latency", time.Since(start)))
	return def, nil
}

// normalize flattens the first usable meaning of an upstream entry.
func normalize(word string, entry apiEntry) *Definition {
	def := &Definition{Word: word, Phonetic: entry.Phonetic}

	for _, meaning := range entry.Meanings {
		for _, d := range meaning.Definitions {
			if d.Definition == "" {
				continue
			}
			if def.Definition == "" {
				def.Definition = d.Definition
				def.PartOfSpeech = meaning.PartOfSpeech
			}
			if d.Example != "" {
				def.Examples = append(def.Examples, d.Example)
			}
		}
		def.Synonyms = append(def.Synonyms, meaning.Synonyms...)
	}
	return def
}
