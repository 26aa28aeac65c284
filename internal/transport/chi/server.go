package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
	answeruc "github.com/eldadyikne/portfolio-agent/internal/usecase/answer"
	healthuc "github.com/eldadyikne/portfolio-agent/internal/usecase/health"
)

// Error codes returned in the error envelope.
const (
	codeBadRequest         = "bad_request"
	codeInvalidPrompt      = "invalid_prompt"
	codeIndexUnavailable   = "index_unavailable"
	codeRecordsUnavailable = "records_unavailable"
	codeEmbeddingProvider  = "embedding_provider_error"
	codeCompletionProvider = "completion_provider_error"
	codeInternalError      = "internal_error"
	codeStreamNotSupported = "streaming_not_supported"
)

// errorResponse is the error envelope used by every endpoint.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ChatService synthesizes grounded answers, whole or streamed.
type ChatService interface {
	Complete(ctx context.Context, prompt string) (answeruc.Completion, error)
	Stream(ctx context.Context, prompt string,
		onSources func(sources []string) error,
		onDelta func(delta string) error) error
}

// RecordsService reads the structured portfolio collections.
type RecordsService interface {
	Projects(ctx context.Context, featuredOnly bool) ([]domain.Project, error)
	Skills(ctx context.Context, featuredOnly bool) ([]domain.Skill, error)
	Experiences(ctx context.Context, featuredOnly bool) ([]domain.WorkExperience, error)
}

// DocumentCorpus serves the full paragraph corpus of the document sources.
type DocumentCorpus interface {
	DocumentParagraphs(ctx context.Context) []string
}

// SecretBroker mints ephemeral realtime client secrets.
type SecretBroker interface {
	ClientSecret(ctx context.Context) (string, error)
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API for the portfolio agent.
type Server struct {
	chat          ChatService
	records       RecordsService
	corpus        DocumentCorpus
	realtime      SecretBroker
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	chat ChatService,
	records RecordsService,
	corpus DocumentCorpus,
	realtime SecretBroker,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:     chat,
		records:  records,
		corpus:   corpus,
		realtime: realtime,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidPrompt, http.StatusBadRequest, codeInvalidPrompt),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrRecordsUnavailable, http.StatusInternalServerError, codeRecordsUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, codeCompletionProvider),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/projects", s.handleProjects)
	r.Post("/api/skills", s.handleSkills)
	r.Post("/api/experience", s.handleExperience)
	r.Post("/api/search-pdf", s.handleSearchPDF)
	r.Get("/api/realtime-agent", s.handleRealtimeSecret)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type featuredRequest struct {
	FeaturedOnly bool `json:"featuredOnly"`
}

// decodeFeatured reads an optional {featuredOnly} body. A missing or
// malformed body means featuredOnly=false rather than an error.
func decodeFeatured(r *http.Request) bool {
	var req featuredRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	return req.FeaturedOnly
}

// handleProjects handles POST /api/projects.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.records.Projects(r.Context(), decodeFeatured(r))
	if err != nil {
		s.writeRecordsError(w, "projects", err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleSkills handles POST /api/skills.
func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.records.Skills(r.Context(), decodeFeatured(r))
	if err != nil {
		s.writeRecordsError(w, "skills", err)
		return
	}
	if skills == nil {
		skills = []domain.Skill{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": skills})
}

// handleExperience handles POST /api/experience.
func (s *Server) handleExperience(w http.ResponseWriter, r *http.Request) {
	experiences, err := s.records.Experiences(r.Context(), decodeFeatured(r))
	if err != nil {
		s.writeRecordsError(w, "experience", err)
		return
	}
	if experiences == nil {
		experiences = []domain.WorkExperience{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"experience": experiences})
}

// writeRecordsError emits the error envelope plus an empty collection,
// so tool callers that read the collection field still get a list.
func (s *Server) writeRecordsError(w http.ResponseWriter, collection string, err error) {
	s.logger.Warn("Records endpoint failed", zap.String("collection", collection), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		collection: []any{},
		"code":     codeRecordsUnavailable,
		"message":  safeDomainMessage(err),
	})
}

type searchPDFContent struct {
	Type string   `json:"type"`
	Text []string `json:"text"`
}

// handleSearchPDF handles POST /api/search-pdf. The query in the body
// is accepted but the full paragraph corpus is returned regardless; the
// realtime agent does its own relevance filtering.
func (s *Server) handleSearchPDF(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	paragraphs := s.corpus.DocumentParagraphs(r.Context())
	if paragraphs == nil {
		paragraphs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content": []searchPDFContent{{Type: "text", Text: paragraphs}},
	})
}

// handleRealtimeSecret handles GET /api/realtime-agent.
func (s *Server) handleRealtimeSecret(w http.ResponseWriter, r *http.Request) {
	secret, err := s.realtime.ClientSecret(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidPrompt,
		domain.ErrIndexUnavailable,
		domain.ErrRecordsUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrCompletionProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
