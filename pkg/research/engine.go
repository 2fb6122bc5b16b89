// Package research turns a completed answer record into one web search and
// one streamed completion, relaying the text as it arrives.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mikeboe/search-helper/pkg/clients"
	"github.com/mikeboe/search-helper/pkg/dialogue"
	"github.com/mikeboe/search-helper/pkg/research/tools"
)

// Searcher runs a single web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]tools.SearchResult, error)
}

// Engine is the search-and-generate relay.
type Engine struct {
	Config    Config
	Searcher  Searcher
	Completer clients.Completer
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewEngine creates an engine with the given collaborators.
func NewEngine(cfg Config, searcher Searcher, completer clients.Completer) *Engine {
	return &Engine{
		Config:    cfg,
		Searcher:  searcher,
		Completer: completer,
		Logger:    slog.Default(),
		Now:       time.Now,
	}
}

// Run produces the recommendation for a completed record. It never fails:
// search errors degrade to an empty context, completion errors to the
// variant's error text and an empty response to its fallback. onUpdate, when
// set, receives every streamed fragment and one final update with Done set.
func (e *Engine) Run(ctx context.Context, v *dialogue.Variant, rec *dialogue.Record, onUpdate func(Update)) string {
	notify := func(u Update) {
		if onUpdate != nil {
			onUpdate(u)
		}
	}

	text := e.generate(ctx, v, rec, notify)
	notify(Update{Text: text, Done: true})
	return text
}

func (e *Engine) generate(ctx context.Context, v *dialogue.Variant, rec *dialogue.Record, notify func(Update)) string {
	date := e.Now().Format(v.DateLayout)
	log := e.Logger.With("variant", v.Name)

	query, err := BuildQuery(v, rec, date)
	if err != nil {
		log.Error("Failed to build query", "error", err)
		return errorText(v, err)
	}

	log.Info("Searching", "query", query)
	results, err := e.Searcher.Search(ctx, query)
	if err != nil {
		log.Warn("Search failed, continuing without results", "error", err)
		notify(Update{Warning: fmt.Sprintf("search failed: %v", err)})
		results = nil
	}
	log.Debug("Search returned", "results", len(results))

	messages, err := BuildMessages(v, rec, FormatContext(v.ContextHeader, results, v.ResultLimit), date)
	if err != nil {
		log.Error("Failed to build prompt", "error", err)
		return errorText(v, err)
	}

	req := clients.CompletionRequest{
		Model:             e.Config.Model,
		Messages:          messages,
		MaxTokens:         v.MaxTokens,
		Temperature:       e.Config.Temperature,
		TopP:              e.Config.TopP,
		TopK:              e.Config.TopK,
		RepetitionPenalty: e.Config.RepetitionPenalty,
		Stop:              e.Config.Stop,
		Stream:            true,
	}

	var sb strings.Builder
	for frag, err := range e.Completer.Stream(ctx, req) {
		if err != nil {
			log.Error("Completion failed", "error", err, "received", sb.Len())
			return errorText(v, err)
		}
		if frag.FinishReason != "" {
			log.Debug("Completion finished", "reason", frag.FinishReason)
			break
		}
		if frag.Content == "" {
			continue
		}
		sb.WriteString(frag.Content)
		notify(Update{Text: sb.String(), Delta: frag.Content})
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		log.Info("Completion was empty, using fallback")
		text = v.Fallback
	}

	footer, err := RenderFooter(v, date)
	if err != nil {
		log.Warn("Failed to render footer", "error", err)
	}
	if footer != "" {
		text += "\n\n" + footer
	}

	log.Info("Recommendation ready", "length", len(text))
	return text
}

func errorText(v *dialogue.Variant, err error) string {
	return fmt.Sprintf("%s: %v", v.ErrorPrefix, err)
}
