// Package mcp exposes nudge sessions as MCP tools.
package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/feedback"
	"github.com/felixgeelhaar/nudge/internal/session"
)

// QuestionLister lists the question bank
type QuestionLister interface {
	List() []*domain.Question
}

// Server wraps the MCP server with nudge functionality
type Server struct {
	mcpServer      *server.Server
	sessionService session.SessionService
	questions      QuestionLister
}

// Config contains configuration for the MCP server
type Config struct {
	SessionService session.SessionService
	Questions      QuestionLister
	Version        string
}

// NewServer creates a new MCP server for nudge
func NewServer(cfg Config) *Server {
	s := &Server{
		sessionService: cfg.SessionService,
		questions:      cfg.Questions,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "nudge",
		Version: version,
	}, server.WithInstructions(`
Nudge gives one piece of feedback per submission for a coding question.
Repeated submissions of the same mistake walk through progressively more
specific hints.

Available tools:
- nudge_questions: List available questions
- nudge_start: Start a session on a question
- nudge_submit: Submit code and get feedback
- nudge_status: Check session status
- nudge_dismiss_prompt: Dismiss the language-unfamiliarity prompt
- nudge_stop: End a session
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("nudge_questions").
		Description("List the questions that sessions can be started on.").
		Handler(s.handleQuestions)

	s.mcpServer.Tool("nudge_start").
		Description("Start a nudge session on a question.").
		Handler(s.handleStart)

	s.mcpServer.Tool("nudge_submit").
		Description("Submit the complete solution code and receive feedback.").
		Handler(s.handleSubmit)

	s.mcpServer.Tool("nudge_status").
		Description("Get current session status.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("nudge_dismiss_prompt").
		Description("Dismiss the language-unfamiliarity prompt and reset its streak.").
		Handler(s.handleDismissPrompt)

	s.mcpServer.Tool("nudge_stop").
		Description("End a nudge session.").
		Handler(s.handleStop)
}

// Input/Output types for tools

type QuestionsInput struct{}

type QuestionSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Tasks    int    `json:"tasks"`
}

type QuestionsOutput struct {
	Questions []QuestionSummary `json:"questions"`
}

type StartInput struct {
	QuestionID string `json:"question_id" jsonschema:"description=Question ID from nudge_questions"`
}

type StartOutput struct {
	SessionID   string `json:"session_id"`
	QuestionID  string `json:"question_id"`
	Title       string `json:"title"`
	StarterCode string `json:"starter_code"`
	Message     string `json:"message"`
}

type SubmitInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from nudge_start"`
	Code      string `json:"code" jsonschema:"description=Complete solution source"`
}

type SubmitOutput struct {
	Correct         bool               `json:"correct"`
	Category        string             `json:"category"`
	Feedback        string             `json:"feedback"`
	Paragraphs      []domain.Paragraph `json:"paragraphs"`
	ErrorLineNumber *int               `json:"error_line_number,omitempty"`
	Stdout          *string            `json:"stdout,omitempty"`
	LanguagePrompt  bool               `json:"language_prompt"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from nudge_start"`
}

type StatusOutput struct {
	SessionID       string `json:"session_id"`
	QuestionID      string `json:"question_id"`
	Status          string `json:"status"`
	SubmissionCount int    `json:"submission_count"`
	CorrectCount    int    `json:"correct_count"`
	LastCategory    string `json:"last_category,omitempty"`
}

type StopOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleQuestions(ctx context.Context, _ QuestionsInput) (QuestionsOutput, error) {
	out := QuestionsOutput{Questions: []QuestionSummary{}}
	if s.questions == nil {
		return out, nil
	}
	for _, q := range s.questions.List() {
		out.Questions = append(out.Questions, QuestionSummary{
			ID:       q.ID,
			Title:    q.Title,
			Language: q.Language,
			Tasks:    len(q.Tasks),
		})
	}
	return out, nil
}

func (s *Server) findQuestion(id string) *domain.Question {
	if s.questions == nil {
		return nil
	}
	for _, q := range s.questions.List() {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (s *Server) handleStart(ctx context.Context, input StartInput) (StartOutput, error) {
	sess, err := s.sessionService.Create(ctx, session.CreateRequest{QuestionID: input.QuestionID})
	if err != nil {
		return StartOutput{}, fmt.Errorf("failed to create session: %w", err)
	}

	out := StartOutput{
		SessionID:  sess.ID,
		QuestionID: sess.QuestionID,
		Message:    "Session started. Submit your complete solution with nudge_submit.",
	}
	if q := s.findQuestion(sess.QuestionID); q != nil {
		out.Title = q.Title
		out.StarterCode = q.StarterCode
	}
	return out, nil
}

func (s *Server) handleSubmit(ctx context.Context, input SubmitInput) (SubmitOutput, error) {
	result, err := s.sessionService.Submit(ctx, input.SessionID, input.Code)
	if err != nil {
		return SubmitOutput{}, fmt.Errorf("submission failed: %w", err)
	}

	return SubmitOutput{
		Correct:         result.Feedback.IsAnswerCorrect,
		Category:        string(result.Category()),
		Feedback:        feedback.PlainText(result.Feedback),
		Paragraphs:      result.Feedback.Paragraphs,
		ErrorLineNumber: result.Feedback.ErrorLineNumber,
		Stdout:          result.Stdout,
		LanguagePrompt:  result.Feedback.LanguageUnfamiliarityPrompt,
	}, nil
}

func (s *Server) handleStatus(ctx context.Context, input SessionInput) (StatusOutput, error) {
	sess, err := s.sessionService.Get(ctx, input.SessionID)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("session not found: %w", err)
	}
	return statusOutput(sess), nil
}

func (s *Server) handleDismissPrompt(ctx context.Context, input SessionInput) (StatusOutput, error) {
	sess, err := s.sessionService.DismissLanguagePrompt(ctx, input.SessionID)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("failed to dismiss prompt: %w", err)
	}
	return statusOutput(sess), nil
}

func statusOutput(sess *session.Session) StatusOutput {
	out := StatusOutput{
		SessionID:       sess.ID,
		QuestionID:      sess.QuestionID,
		Status:          string(sess.Status),
		SubmissionCount: sess.SubmissionCount,
		CorrectCount:    sess.CorrectCount,
	}
	if sess.LastResult != nil {
		out.LastCategory = string(sess.LastResult.Category())
	}
	return out
}

func (s *Server) handleStop(ctx context.Context, input SessionInput) (StopOutput, error) {
	if err := s.sessionService.Delete(ctx, input.SessionID); err != nil {
		return StopOutput{}, fmt.Errorf("failed to delete session: %w", err)
	}
	return StopOutput{Message: "Session ended successfully"}, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
