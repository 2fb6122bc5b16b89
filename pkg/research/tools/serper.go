package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultSerperURL is the Serper web search endpoint.
const DefaultSerperURL = "https://google.serper.dev/search"

// SearchResult is one organic web search hit. Any field may be empty.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type serperResponse struct {
	Organic []SearchResult `json:"organic"`
}

// SerperClient queries a Serper-compatible search API.
type SerperClient struct {
	URL    string
	APIKey string
	HTTP   *http.Client
	Logger *slog.Logger
}

// NewSerperClient creates a search client.
func NewSerperClient(url, apiKey string, timeout time.Duration) *SerperClient {
	if url == "" {
		url = DefaultSerperURL
	}
	return &SerperClient{
		URL:    url,
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: timeout},
		Logger: slog.Default(),
	}
}

// Search runs query and returns the organic results in upstream order.
func (c *SerperClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.Logger.Debug("Searching", "query", query)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(bodyBytes))
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.Logger.Debug("Search finished", "query", query, "results", len(out.Organic))
	return out.Organic, nil
}
