package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"tripmate-ai/internal/domain"
)

// SSEWriter pushes stream events to one HTTP response in the wire
// format "event: <kind>\ndata: <payload>\n\n". Multi-line payloads are
// split across data lines per the SSE framing rules.
//
// Send is safe for concurrent use; the enrichment worker and the main
// turn share one writer.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	failed  bool
}

// NewSSEWriter prepares w for event streaming and writes the stream
// headers. Returns an error if the connection cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one event record and flushes it. A write error marks the
// writer failed; every later Send fails fast. A failed Send means the
// consumer is gone and is the turn's only cancellation signal.
func (s *SSEWriter) Send(ev domain.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return fmt.Errorf("%w: sse writer failed", domain.ErrStreamClosed)
	}

	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(string(ev.Kind))
	b.WriteString("\n")
	for _, line := range strings.Split(ev.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		s.failed = true
		return fmt.Errorf("%w: %v", domain.ErrStreamClosed, err)
	}
	s.flusher.Flush()
	return nil
}
