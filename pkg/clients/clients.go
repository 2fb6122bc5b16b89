// Package clients talks to chat-completion backends and exposes their
// output as a lazy stream of fragments.
package clients

import (
	"context"
	"iter"
)

// Message is one chat message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the body of a streamed chat-completion call.
type CompletionRequest struct {
	Model             string    `json:"model"`
	Messages          []Message `json:"messages"`
	MaxTokens         int       `json:"max_tokens"`
	Temperature       float64   `json:"temperature"`
	TopP              float64   `json:"top_p"`
	TopK              int       `json:"top_k"`
	RepetitionPenalty float64   `json:"repetition_penalty"`
	Stop              []string  `json:"stop"`
	Stream            bool      `json:"stream"`
}

// Fragment is one parsed piece of a streamed completion. FinishReason is
// empty until the backend marks the end of generation.
type Fragment struct {
	Content      string
	FinishReason string
}

// Completer streams a chat completion. Transport failures are yielded as the
// iterator's error value; the sequence is finite and not restartable.
type Completer interface {
	Stream(ctx context.Context, req CompletionRequest) iter.Seq2[Fragment, error]
}

// Roles used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
