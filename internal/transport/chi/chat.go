package chi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/eldadyikne/portfolio-agent/internal/metrics"
)

type chatRequest struct {
	Prompt string `json:"prompt"`
	Stream *bool  `json:"stream"`
}

type chatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// handleChat handles POST /api/chat. Streaming is the default; pass
// stream:false for a single JSON response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	stream := true
	if req.Stream != nil {
		stream = *req.Stream
	}

	if stream {
		s.handleChatStream(w, r, req.Prompt)
		return
	}

	completion, err := s.chat.Complete(r.Context(), req.Prompt)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("sync", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.ChatRequestsTotal.WithLabelValues("sync", "success").Inc()

	sources := completion.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: completion.Answer, Sources: sources})
}

// handleChatStream writes the answer as server-sent events. The first
// frame carries the sources; the last is always done or error. A
// failure before the first frame falls back to a plain error envelope
// so the client gets a real status code.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request, prompt string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		metrics.ChatRequestsTotal.WithLabelValues("stream", "error").Inc()
		writeError(w, http.StatusInternalServerError, codeStreamNotSupported, "streaming unsupported")
		return
	}

	sw := newSSEWriter(w, flusher)

	err := s.chat.Stream(r.Context(), prompt,
		func(sources []string) error { return sw.WriteSources(sources) },
		func(delta string) error { return sw.WriteChunk(delta) },
	)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("stream", "error").Inc()
		if !sw.Started() {
			s.handleDomainError(w, err)
			return
		}
		s.logger.Error("Chat stream failed mid-flight", zap.Error(err))
		_ = sw.WriteStreamError("Stream failed")
		return
	}

	metrics.ChatRequestsTotal.WithLabelValues("stream", "success").Inc()
	_ = sw.WriteDone()
}
