package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/nudge/internal/session"
)

// Ensure Producer is a submission event sink
var _ session.EventSink = (*Producer)(nil)

// Producer publishes submission jobs and feedback
type Producer struct {
	pub    jsonPublisher
	logger *slog.Logger
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return newProducer(conn, conn.logger)
}

func newProducer(pub jsonPublisher, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{pub: pub, logger: logger}
}

// NewSubmissionJob creates a job for evaluating code in a session
func NewSubmissionJob(sessionID, code string) *SubmissionJob {
	return &SubmissionJob{
		ID:        uuid.New(),
		SessionID: sessionID,
		Code:      code,
		CreatedAt: time.Now(),
	}
}

// PublishSubmission publishes a submission job to the queue
func (p *Producer) PublishSubmission(ctx context.Context, job *SubmissionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.pub.PublishJSON(ctx, SubmissionQueueName, job); err != nil {
		return fmt.Errorf("failed to publish submission job: %w", err)
	}

	p.logger.Debug("published submission job", "job_id", job.ID, "session_id", job.SessionID)
	return nil
}

// PublishFeedback publishes a feedback message to the feedback queue
func (p *Producer) PublishFeedback(ctx context.Context, msg *FeedbackMessage) error {
	if msg.CompletedAt.IsZero() {
		msg.CompletedAt = time.Now()
	}

	if err := p.pub.PublishJSON(ctx, FeedbackQueueName, msg); err != nil {
		return fmt.Errorf("failed to publish feedback: %w", err)
	}

	p.logger.Debug("published feedback",
		"kind", msg.Kind,
		"job_id", msg.JobID,
		"session_id", msg.SessionID,
		"status", msg.Status,
	)
	return nil
}

// OnSubmission forwards committed submissions to the feedback queue
func (p *Producer) OnSubmission(ctx context.Context, event session.SubmissionEvent) error {
	return p.PublishFeedback(ctx, &FeedbackMessage{
		Kind:        KindSubmission,
		SessionID:   event.SessionID,
		QuestionID:  event.QuestionID,
		Attempt:     event.Attempt,
		Status:      StatusCompleted,
		Result:      event.Result,
		Duration:    event.Duration,
		CompletedAt: event.CreatedAt,
	})
}
