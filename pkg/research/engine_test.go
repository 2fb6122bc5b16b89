package research

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/search-helper/pkg/clients"
	"github.com/mikeboe/search-helper/pkg/research/tools"
)

type fakeSearcher struct {
	SearchFunc func(ctx context.Context, query string) ([]tools.SearchResult, error)
	queries    []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]tools.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.SearchFunc(ctx, query)
}

type fakeCompleter struct {
	fragments []clients.Fragment
	err       error
	requests  []clients.CompletionRequest
}

func (f *fakeCompleter) Stream(ctx context.Context, req clients.CompletionRequest) iter.Seq2[clients.Fragment, error] {
	f.requests = append(f.requests, req)
	return func(yield func(clients.Fragment, error) bool) {
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.err != nil {
			yield(clients.Fragment{}, f.err)
		}
	}
}

func results(n int) []tools.SearchResult {
	out := make([]tools.SearchResult, n)
	for i := range out {
		out[i] = tools.SearchResult{Title: "car", Snippet: "nice", Link: "https://example.com"}
	}
	return out
}

func newTestEngine(s *fakeSearcher, c *fakeCompleter) *Engine {
	e := NewEngine(DefaultConfig(), s, c)
	e.Config.Model = "test-model"
	e.Now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEngineRunStreamsAndStopsAtFinish(t *testing.T) {
	v := usedCars(t)
	rec := answer(t, v, carAnswers("no")...)

	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q string) ([]tools.SearchResult, error) {
		return results(8), nil
	}}
	completer := &fakeCompleter{fragments: []clients.Fragment{
		{Content: "Uno "},
		{Content: "dos "},
		{Content: "tres"},
		{FinishReason: "stop"},
		{Content: " ignored"},
	}}

	var updates []Update
	text := newTestEngine(searcher, completer).Run(context.Background(), v, rec, func(u Update) {
		updates = append(updates, u)
	})

	assert.Equal(t, "Uno dos tres\n\nFecha de búsqueda: 19/10/2026", text)
	require.Len(t, updates, 4)
	assert.Equal(t, "Uno ", updates[0].Text)
	assert.Equal(t, "Uno "+Cursor, updates[0].Display())
	assert.Equal(t, "dos ", updates[1].Delta)
	assert.Equal(t, "Uno dos tres", updates[2].Text)
	assert.True(t, updates[3].Done)
	assert.Equal(t, text, updates[3].Display())

	require.Len(t, searcher.queries, 1)
	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.InDelta(t, 0.7, req.TopP, 1e-9)
	assert.Equal(t, 50, req.TopK)
	assert.InDelta(t, 1, req.RepetitionPenalty, 1e-9)
	assert.Equal(t, []string{"<|eot_id|>", "<|eom_id|>"}, req.Stop)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[1].Content, "5. car: nice")
	assert.NotContains(t, req.Messages[1].Content, "6. car: nice")
}

func TestEngineRunSearchFailureContinues(t *testing.T) {
	v := usedCars(t)
	rec := answer(t, v, carAnswers("no")...)

	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q string) ([]tools.SearchResult, error) {
		return nil, errors.New("dial tcp: timeout")
	}}
	completer := &fakeCompleter{fragments: []clients.Fragment{{Content: "Hay opciones."}}}

	var warnings []string
	text := newTestEngine(searcher, completer).Run(context.Background(), v, rec, func(u Update) {
		if u.Warning != "" {
			warnings = append(warnings, u.Warning)
		}
	})

	assert.Equal(t, "Hay opciones.\n\nFecha de búsqueda: 19/10/2026", text)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "dial tcp: timeout")
	require.Len(t, completer.requests, 1)
	assert.Contains(t, completer.requests[0].Messages[1].Content, v.ContextHeader+"\n\n")
}

func TestEngineRunEmptyStreamFallsBack(t *testing.T) {
	v := usedCars(t)
	rec := answer(t, v, carAnswers("no")...)

	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q string) ([]tools.SearchResult, error) {
		return nil, nil
	}}
	completer := &fakeCompleter{fragments: []clients.Fragment{{FinishReason: "stop"}}}

	text := newTestEngine(searcher, completer).Run(context.Background(), v, rec, nil)
	assert.Equal(t, v.Fallback+"\n\nFecha de búsqueda: 19/10/2026", text)
}

func TestEngineRunCompletionError(t *testing.T) {
	v := usedCars(t)
	rec := answer(t, v, carAnswers("no")...)

	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q string) ([]tools.SearchResult, error) {
		return results(1), nil
	}}
	completer := &fakeCompleter{
		fragments: []clients.Fragment{{Content: "partial"}},
		err:       errors.New("connection reset"),
	}

	var last Update
	text := newTestEngine(searcher, completer).Run(context.Background(), v, rec, func(u Update) { last = u })

	assert.Equal(t, "Ocurrió un error al procesar tu solicitud: connection reset", text)
	assert.True(t, last.Done)
	assert.Equal(t, text, last.Text)
}

func TestEngineRunResearchVariantLimits(t *testing.T) {
	v := usedCars(t)
	v2 := *v
	v2.ResultLimit = 3
	v2.MaxTokens = 512
	v2.Footer = ""
	rec := answer(t, v, carAnswers("no")...)

	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q string) ([]tools.SearchResult, error) {
		return results(5), nil
	}}
	completer := &fakeCompleter{fragments: []clients.Fragment{{Content: "ok"}}}

	text := newTestEngine(searcher, completer).Run(context.Background(), &v2, rec, nil)
	assert.Equal(t, "ok", text)
	req := completer.requests[0]
	assert.Equal(t, 512, req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, "3. car")
	assert.NotContains(t, req.Messages[1].Content, "4. car")
}
