package clients

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r io.Reader) ([]Fragment, error) {
	t.Helper()
	var frags []Fragment
	for frag, err := range ParseStream(r) {
		if err != nil {
			return frags, err
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

func TestParseStream(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hola"},"finish_reason":null}]}`,
		``,
		`: keep-alive`,
		`data: not json`,
		`data: {"choices":[]}`,
		`event: message`,
		`data:{"choices":[{"delta":{"content":", "}}]}`,
		`data: {"choices":[{"delta":{"content":"mundo"},"finish_reason":null}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"after done"}}]}`,
	}, "\n")

	frags, err := collect(t, strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, frags, 4)
	assert.Equal(t, "Hola", frags[0].Content)
	assert.Empty(t, frags[0].FinishReason)
	assert.Equal(t, ", ", frags[1].Content)
	assert.Equal(t, "mundo", frags[2].Content)
	assert.Equal(t, "stop", frags[3].FinishReason)
}

func TestParseStreamSplitReads(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"

	frags, err := collect(t, iotest.OneByteReader(strings.NewReader(stream)))
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "b", frags[1].Content)
}

func TestParseStreamEmpty(t *testing.T) {
	frags, err := collect(t, strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func TestParseStreamReadError(t *testing.T) {
	r := io.MultiReader(
		strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)
	frags, err := collect(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Len(t, frags, 1)
}

func TestParseStreamStopsWhenConsumerStops(t *testing.T) {
	stream := strings.Repeat("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n", 10)
	n := 0
	for range ParseStream(strings.NewReader(stream)) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}
