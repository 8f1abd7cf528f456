package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Client searches the candidate-feed backend over HTTP: one POST per
// query, a batch of raw tweet payloads back.
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient builds a candidate-feed client from cfg.
func NewClient(cfg *Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// searchResponse mirrors the candidate-feed backend's envelope: a list of
// raw per-tweet payloads, heterogeneous in shape.
type searchResponse struct {
	Data []map[string]any `json:"data"`
}

// RateLimitError indicates the candidate-feed backend returned 429.
type RateLimitError struct{}

func (RateLimitError) Error() string { return "feed: rate limit exceeded" }

// Search runs one query against the candidate-feed backend and returns the
// raw per-tweet payloads for pkg/normalize.FromAPIData to map.
func (c *Client) Search(ctx context.Context, query string, count int) ([]map[string]any, error) {
	body, err := json.Marshal(searchRequest{Query: query, Count: count})
	if err != nil {
		return nil, fmt.Errorf("feed: marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	}

	c.config.Logger.WithFields(logrus.Fields{
		"query":    query,
		"count":    count,
		"endpoint": c.config.APIEndpoint,
	}).Debug("feed: searching candidate feed")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, RateLimitError{}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("feed: decode response: %w", err)
	}

	c.config.Logger.WithField("tweets_count", len(parsed.Data)).Debug("feed: search complete")
	return parsed.Data, nil
}
