package clients

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

const maxLineSize = 1024 * 1024

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// ParseStream reads server-sent event lines from r and yields one Fragment per
// "data:" payload. Blank lines, other SSE fields, payloads that are not JSON
// and payloads without choices are skipped. "[DONE]" ends the stream. A read
// error is yielded once and ends the stream.
func ParseStream(r io.Reader) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			payload, ok := bytes.CutPrefix(bytes.TrimSpace(scanner.Bytes()), dataPrefix)
			if !ok {
				continue
			}
			payload = bytes.TrimSpace(payload)
			if len(payload) == 0 {
				continue
			}
			if bytes.Equal(payload, doneMarker) {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			frag := Fragment{Content: choice.Delta.Content}
			if choice.FinishReason != nil {
				frag.FinishReason = *choice.FinishReason
			}
			if !yield(frag, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Fragment{}, fmt.Errorf("failed to read stream: %w", err))
		}
	}
}
