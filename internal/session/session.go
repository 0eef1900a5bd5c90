package session

import (
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/learner"
	"github.com/google/uuid"
)

// Session is one learner working through one question
type Session struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Language   string `json:"language"`
	Status     Status `json:"status"`

	// State carries hint and streak progression between submissions.
	State *learner.State `json:"state"`

	// Statistics
	SubmissionCount int                      `json:"submission_count"`
	CorrectCount    int                      `json:"correct_count"`
	LastResult      *domain.SubmissionResult `json:"last_result,omitempty"`
	LastSubmittedAt *time.Time               `json:"last_submitted_at,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status represents the session state
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// NewSession creates a new session for a question
func NewSession(questionID, language string) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New().String(),
		QuestionID: questionID,
		Language:   language,
		Status:     StatusActive,
		State:      learner.NewState(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy so callers never share learner state.
func (s *Session) Clone() *Session {
	c := *s
	if s.State != nil {
		c.State = s.State.Clone()
	}
	if s.LastResult != nil {
		r := *s.LastResult
		r.Feedback.Paragraphs = append([]domain.Paragraph(nil), s.LastResult.Feedback.Paragraphs...)
		c.LastResult = &r
	}
	if s.LastSubmittedAt != nil {
		t := *s.LastSubmittedAt
		c.LastSubmittedAt = &t
	}
	return &c
}

// learnerState returns a private copy of the session's state for evaluation.
func (s *Session) learnerState() *learner.State {
	if s.State == nil {
		return learner.NewState()
	}
	return s.State.Clone()
}

// recordResult commits an evaluated submission.
func (s *Session) recordResult(state *learner.State, result *domain.SubmissionResult, at time.Time) {
	s.State = state
	s.SubmissionCount++
	s.LastResult = result
	s.LastSubmittedAt = &at
	s.UpdatedAt = at
	if result.Feedback.IsAnswerCorrect {
		s.CorrectCount++
		s.Status = StatusCompleted
	}
}
