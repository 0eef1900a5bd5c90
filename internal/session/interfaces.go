package session

import (
	"context"
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/evaluation"
	"github.com/felixgeelhaar/nudge/internal/learner"
)

// SessionService defines the session operations used by the daemon
// handlers, the MCP server and the queue worker
type SessionService interface {
	Create(ctx context.Context, req CreateRequest) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, id, code string) (*domain.SubmissionResult, error)
	DismissLanguagePrompt(ctx context.Context, id string) (*Session, error)
}

// Ensure Service implements SessionService
var _ SessionService = (*Service)(nil)

// SessionStore defines the persistence interface for sessions.
// Both the in-memory store and the SQLite store implement this.
type SessionStore interface {
	Save(session *Session) error
	Get(id string) (*Session, error)
	Delete(id string) error
	List() ([]*Session, error)
}

// Ensure MemoryStore implements SessionStore
var _ SessionStore = (*MemoryStore)(nil)

// QuestionSource resolves question ids
type QuestionSource interface {
	Get(id string) (*domain.Question, error)
}

// Evaluator runs the feedback cascade for one submission
type Evaluator interface {
	ProcessSolution(ctx context.Context, sub evaluation.Submission, state *learner.State) (*domain.SubmissionResult, error)
}

// Ensure the evaluation service satisfies Evaluator
var _ Evaluator = (*evaluation.Service)(nil)

// SubmissionEvent describes a committed submission
type SubmissionEvent struct {
	SessionID  string                   `json:"session_id"`
	QuestionID string                   `json:"question_id"`
	Attempt    int                      `json:"attempt"`
	Result     *domain.SubmissionResult `json:"result"`
	Duration   time.Duration            `json:"duration"`
	CreatedAt  time.Time                `json:"created_at"`
}

// EventSink consumes submission events. Sink failures are logged and never
// fail the submission.
type EventSink interface {
	OnSubmission(ctx context.Context, event SubmissionEvent) error
}
