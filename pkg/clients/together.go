package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"
)

const (
	// DefaultTogetherURL is the chat-completions endpoint of Together AI.
	DefaultTogetherURL = "https://api.together.xyz/v1/chat/completions"
	// DefaultTogetherModel is the model the assistant was tuned against.
	DefaultTogetherModel = "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo"
)

// TogetherClient streams completions from a Together-compatible endpoint.
type TogetherClient struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

// NewTogetherClient creates a client. timeout bounds the whole request,
// including reading the stream; zero means no limit.
func NewTogetherClient(url, apiKey string, timeout time.Duration) *TogetherClient {
	if url == "" {
		url = DefaultTogetherURL
	}
	return &TogetherClient{
		URL:    url,
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: timeout},
	}
}

// Stream sends req with stream enabled. The request is made when the
// sequence is first iterated.
func (c *TogetherClient) Stream(ctx context.Context, req CompletionRequest) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		req.Stream = true
		body, err := json.Marshal(req)
		if err != nil {
			yield(Fragment{}, fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
		if err != nil {
			yield(Fragment{}, fmt.Errorf("failed to create request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, err := c.HTTP.Do(httpReq)
		if err != nil {
			yield(Fragment{}, fmt.Errorf("failed to call completion API: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield(Fragment{}, fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(bodyBytes)))
			return
		}

		for frag, err := range ParseStream(resp.Body) {
			if !yield(frag, err) {
				return
			}
		}
	}
}
