// Package daemon serves the nudge HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/felixgeelhaar/nudge/internal/config"
	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/session"
	"github.com/felixgeelhaar/nudge/internal/storage/sqlite"
)

// maxBodyBytes caps request bodies; submissions are single source files.
const maxBodyBytes = 1 << 20

// QuestionCatalog is the question bank served by the daemon
type QuestionCatalog interface {
	Get(id string) (*domain.Question, error)
	List() []*domain.Question
}

// StatsSource aggregates logged submissions
type StatsSource interface {
	Stats(ctx context.Context, questionID string) (*sqlite.Stats, error)
}

// Server represents the nudge daemon HTTP server
type Server struct {
	cfg       *config.LocalConfig
	server    *http.Server
	router    chi.Router
	logger    *slog.Logger
	version   string
	startedAt time.Time

	sessions  session.SessionService
	questions QuestionCatalog
	stats     StatsSource
	limiter   *rateLimiter
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config    *config.LocalConfig
	Sessions  session.SessionService
	Questions QuestionCatalog
	Stats     StatsSource // optional; nil disables /v1/stats
	Version   string
	Logger    *slog.Logger
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Sessions == nil || cfg.Questions == nil {
		return nil, fmt.Errorf("%w: sessions and questions are required", domain.ErrInvalidInput)
	}
	if cfg.Config == nil {
		cfg.Config = config.DefaultLocalConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg.Config,
		router:    chi.NewRouter(),
		logger:    cfg.Logger,
		version:   cfg.Version,
		startedAt: time.Now(),
		sessions:  cfg.Sessions,
		questions: cfg.Questions,
		stats:     cfg.Stats,
	}
	if n := cfg.Config.Daemon.SubmissionsPerMinute; n > 0 {
		s.limiter = newRateLimiter(n, time.Minute, n)
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(correlationIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoveryMiddleware(s.logger))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Get("/questions", s.handleListQuestions)
		r.Get("/questions/{id}", s.handleGetQuestion)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Group(func(r chi.Router) {
				if s.limiter != nil {
					r.Use(s.submissionRateLimit(s.limiter))
				}
				r.Post("/submissions", s.handleSubmit)
			})
			r.Post("/language-prompt/dismiss", s.handleDismissPrompt)
		})

		r.Get("/stats", s.handleStats)
	})
}

// Handler returns the HTTP handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting nudge daemon", "addr", s.server.Addr, "questions", len(s.questions.List()))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon")
	return s.server.Shutdown(ctx)
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"runner":         s.cfg.Runner.Executor,
		"questions":      len(s.questions.List()),
		"sessions":       len(sessions),
		"queue_enabled":  s.cfg.Queue.Enabled,
		"stats_enabled":  s.stats != nil,
	})
}

// questionSummary is the list view of a question
type questionSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Tasks    int    `json:"tasks"`
}

// taskView exposes what a learner needs to work on a task. Expected
// outputs and hint rules are not served.
type taskView struct {
	MainFunctionName string   `json:"main_function_name"`
	Instructions     []string `json:"instructions,omitempty"`
}

type questionView struct {
	questionSummary
	StarterCode string     `json:"starter_code"`
	TaskList    []taskView `json:"task_list"`
}

func summarize(q *domain.Question) questionSummary {
	return questionSummary{ID: q.ID, Title: q.Title, Language: q.Language, Tasks: len(q.Tasks)}
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions := s.questions.List()
	out := make([]questionSummary, 0, len(questions))
	for _, q := range questions {
		out = append(out, summarize(q))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"questions": out})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.questions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	view := questionView{questionSummary: summarize(q), StarterCode: q.StarterCode}
	for _, t := range q.Tasks {
		view.TaskList = append(view.TaskList, taskView{
			MainFunctionName: t.MainFunctionName,
			Instructions:     t.Instructions,
		})
	}
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.sessions.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitRequest is the body of a submission
type SubmitRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.sessions.Submit(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleDismissPrompt(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.DismissLanguagePrompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "submission log disabled", nil)
		return
	}

	stats, err := s.stats.Stats(r.Context(), r.URL.Query().Get("question_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// decode reads a JSON body into v, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrStaleSubmission),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, session.ErrQuestionRequired),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := http.StatusText(status)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.jsonError(w, status, message, err)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}
