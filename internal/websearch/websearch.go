// Package websearch implements provider.SearchProvider over a JSON search
// API. The endpoint is expected to return ranked organic results; any
// SerpAPI-compatible gateway works.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/provider"
)

// #region config

// Config holds search client parameters.
type Config struct {
	Endpoint   string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
	Enabled    bool
}

// DefaultConfig returns default search configuration.
// Reads from env vars: INSIGHT_SEARCH_ENABLED, INSIGHT_SEARCH_ENDPOINT,
// INSIGHT_SEARCH_API_KEY, INSIGHT_SEARCH_MAX_RESULTS, INSIGHT_SEARCH_TIMEOUT.
func DefaultConfig() Config {
	cfg := Config{
		MaxResults: 10,
		Timeout:    10 * time.Second,
		Enabled:    false,
	}
	if v := os.Getenv("INSIGHT_SEARCH_ENABLED"); v != "" {
		cfg.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("INSIGHT_SEARCH_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("INSIGHT_SEARCH_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("INSIGHT_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxResults = n
		}
	}
	if v := os.Getenv("INSIGHT_SEARCH_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}

// #endregion config

// #region client

const maxRetries = 2 // max 2 retries = 3 total attempts

// Client queries a remote search API. Satisfies provider.SearchProvider.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a search client from the given configuration.
func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// apiResult is the wire shape of one organic result.
type apiResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Domain   string `json:"domain"`
	Snippet  string `json:"snippet"`
}

type apiResponse struct {
	Organic []apiResult `json:"organic_results"`
}

// Search fetches ranked results for the query. Transient failures (network
// errors, 5xx) are retried up to maxRetries before giving up.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]provider.SearchResult, error) {
	if !c.cfg.Enabled || c.cfg.Endpoint == "" {
		return nil, fmt.Errorf("web search disabled")
	}
	if limit <= 0 || limit > c.cfg.MaxResults {
		limit = c.cfg.MaxResults
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		results, retryable, err := c.fetch(ctx, query, limit)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("search %q: %w", query, lastErr)
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]provider.SearchResult, bool, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("num", strconv.Itoa(limit))
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("server status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	out := make([]provider.SearchResult, 0, len(body.Organic))
	for i, r := range body.Organic {
		if i >= limit {
			break
		}
		rank := r.Position
		if rank == 0 {
			rank = i + 1
		}
		out = append(out, provider.SearchResult{
			Rank:    rank,
			Title:   r.Title,
			Domain:  domainOf(r),
			URL:     r.Link,
			Snippet: r.Snippet,
		})
	}
	return out, false, nil
}

func domainOf(r apiResult) string {
	if r.Domain != "" {
		return r.Domain
	}
	u, err := url.Parse(r.Link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// #endregion client
