package llm

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"tripmate-ai/internal/domain"
)

// maxSSELine bounds a single upstream SSE line. Anthropic text deltas
// are small but tool argument fragments can carry whole JSON payloads.
const maxSSELine = 1 << 20

// parseSSEStream turns the SSE body of a streaming completion into a
// channel of deltas. parseLine maps one "data:" payload to a delta;
// returning (nil, nil) drops the line. The channel closes when the
// stream ends, parseLine reports Done, or ctx is cancelled; body is
// always closed.
func parseSSEStream(ctx context.Context, body io.ReadCloser, parseLine func(data []byte) (*domain.StreamDelta, error)) <-chan domain.StreamDelta {
	ch := make(chan domain.StreamDelta, 16)
	go func() {
		defer close(ch)
		defer body.Close()

		emit := func(d domain.StreamDelta) bool {
			select {
			case ch <- d:
				return true
			case <-ctx.Done():
				return false
			}
		}

		sc := bufio.NewScanner(body)
		sc.Buffer(make([]byte, 0, 64*1024), maxSSELine)
		for sc.Scan() {
			if ctx.Err() != nil {
				return
			}

			line := sc.Bytes()
			// The event name is duplicated in the payload's "type"
			// field, so only "data:" lines matter. Blank lines and
			// ":" comments are separators.
			data, ok := bytes.CutPrefix(line, []byte("data: "))
			if !ok {
				continue
			}
			if bytes.Equal(data, []byte("[DONE]")) {
				emit(domain.StreamDelta{Done: true})
				return
			}

			delta, err := parseLine(data)
			if err != nil || delta == nil {
				continue
			}
			if !emit(*delta) || delta.Done {
				return
			}
		}
		if sc.Err() != nil {
			// Connection dropped mid-stream. Close out the turn so
			// the consumer is not left waiting.
			emit(domain.StreamDelta{Done: true})
		}
	}()
	return ch
}
