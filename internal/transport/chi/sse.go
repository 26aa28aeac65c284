package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/eldadyikne/portfolio-agent/internal/metrics"
)

// Streaming frame types, in the order a client may see them: sources
// first, then chunks, then exactly one done or error.
const (
	frameSources = "sources"
	frameChunk   = "chunk"
	frameDone    = "done"
	frameError   = "error"
)

type sourcesFrame struct {
	Type    string   `json:"type"`
	Sources []string `json:"sources"`
}

type chunkFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type doneFrame struct {
	Type string `json:"type"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// sseWriter emits JSON frames as server-sent events. Headers are sent
// lazily on the first frame, so a failure before any frame can still
// produce a normal error response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEWriter(w http.ResponseWriter, flusher http.Flusher) *sseWriter {
	return &sseWriter{w: w, flusher: flusher}
}

// Started reports whether any frame has been written.
func (s *sseWriter) Started() bool { return s.started }

// WriteSources emits the sources frame. Nil sources serialize as an
// empty array, not null.
func (s *sseWriter) WriteSources(sources []string) error {
	if sources == nil {
		sources = []string{}
	}
	return s.write(frameSources, sourcesFrame{Type: frameSources, Sources: sources})
}

// WriteChunk emits one text increment.
func (s *sseWriter) WriteChunk(content string) error {
	return s.write(frameChunk, chunkFrame{Type: frameChunk, Content: content})
}

// WriteDone emits the terminal done frame.
func (s *sseWriter) WriteDone() error {
	return s.write(frameDone, doneFrame{Type: frameDone})
}

// WriteStreamError emits the terminal error frame.
func (s *sseWriter) WriteStreamError(msg string) error {
	return s.write(frameError, errorFrame{Type: frameError, Error: msg})
}

func (s *sseWriter) write(frameType string, frame any) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal sse frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	s.flusher.Flush()
	metrics.ChatStreamFramesTotal.WithLabelValues(frameType).Inc()
	return nil
}
