// Package search queries the Tavily web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
)

// DefaultEndpoint is the Tavily search URL.
const DefaultEndpoint = "https://api.tavily.com/search"

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Tavily is a minimal client for the search endpoint.
type Tavily struct {
	apiKey   string
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures the client.
type Option func(*Tavily)

// WithEndpoint overrides the API URL.
func WithEndpoint(u string) Option {
	return func(t *Tavily) { t.endpoint = u }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tavily) { t.http = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tavily) { t.logger = logger }
}

// NewTavily creates a client for apiKey.
func NewTavily(apiKey string, opts ...Option) (*Tavily, error) {
	if apiKey == "" {
		return nil, errors.New("search: api key is required")
	}
	t := &Tavily{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 20 * time.Second},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type request struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type response struct {
	Results []Result `json:"results"`
}

// Search returns up to maxResults hits for query.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 1
	}
	body, err := json.Marshal(request{Query: query, MaxResults: maxResults, SearchDepth: "basic"})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.External("web search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.External("web search", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.External("web search", fmt.Errorf("decoding response: %w", err))
	}
	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	t.logger.Debug("web search", "results", len(out.Results), "duration", time.Since(start))
	return out.Results, nil
}
