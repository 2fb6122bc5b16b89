package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTogetherClientStream(t *testing.T) {
	var got CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"one ", "two ", "three"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", piece)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"eos\"}]}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewTogetherClient(srv.URL, "secret", time.Second)
	req := CompletionRequest{
		Model:             DefaultTogetherModel,
		Messages:          []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		MaxTokens:         1024,
		Temperature:       0.7,
		TopP:              0.7,
		TopK:              50,
		RepetitionPenalty: 1,
		Stop:              []string{"<|eot_id|>", "<|eom_id|>"},
	}

	var text string
	var finish string
	for frag, err := range c.Stream(context.Background(), req) {
		require.NoError(t, err)
		text += frag.Content
		finish = frag.FinishReason
	}

	assert.Equal(t, "one two three", text)
	assert.Equal(t, "eos", finish)
	assert.True(t, got.Stream)
	assert.Equal(t, 50, got.TopK)
	assert.Equal(t, []string{"<|eot_id|>", "<|eom_id|>"}, got.Stop)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestTogetherClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewTogetherClient(srv.URL, "bad", time.Second)
	var errs []error
	for _, err := range c.Stream(context.Background(), CompletionRequest{}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "401")
	assert.ErrorContains(t, errs[0], "invalid api key")
}

func TestTogetherClientCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewTogetherClient(srv.URL, "key", 0)
	var errs []error
	for _, err := range c.Stream(ctx, CompletionRequest{}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestNewTogetherClientDefaults(t *testing.T) {
	c := NewTogetherClient("", "key", 0)
	assert.Equal(t, DefaultTogetherURL, c.URL)
}
