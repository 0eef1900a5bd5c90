package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/session"
)

// Ensure SubmissionLog is a submission event sink.
var _ session.EventSink = (*SubmissionLog)(nil)

// SubmissionRecord is one logged submission.
type SubmissionRecord struct {
	ID             int64              `json:"id"`
	SessionID      string             `json:"session_id"`
	QuestionID     string             `json:"question_id"`
	Attempt        int                `json:"attempt"`
	Key            domain.FeedbackKey `json:"key"`
	MessageIndex   int                `json:"message_index"`
	IsCorrect      bool               `json:"is_correct"`
	LanguagePrompt bool               `json:"language_prompt"`
	Duration       time.Duration      `json:"duration"`
	Paragraphs     []domain.Paragraph `json:"paragraphs"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Stats aggregates the submission log.
type Stats struct {
	QuestionID      string         `json:"question_id,omitempty"`
	Total           int            `json:"total"`
	Correct         int            `json:"correct"`
	LanguagePrompts int            `json:"language_prompts"`
	Sessions        int            `json:"sessions"`
	ByCategory      map[string]int `json:"by_category"`
}

// SubmissionLog records every committed submission.
type SubmissionLog struct {
	db *DB
}

// NewSubmissionLog creates a new SQLite-backed submission log.
func NewSubmissionLog(db *DB) *SubmissionLog {
	return &SubmissionLog{db: db}
}

// OnSubmission stores a submission event.
func (l *SubmissionLog) OnSubmission(ctx context.Context, event session.SubmissionEvent) error {
	if event.Result == nil {
		return fmt.Errorf("%w: submission event without result", domain.ErrInvalidInput)
	}
	res := event.Result
	paragraphs, err := json.Marshal(res.Feedback.Paragraphs)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	key := res.Details.Key
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO submissions (session_id, question_id, attempt, category, task_index,
			specific_test_index, message_index, is_correct, language_prompt, duration_ms,
			feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.SessionID, event.QuestionID, event.Attempt, string(key.Category), key.TaskIndex,
		key.SpecificTestIndex, res.Details.MessageIndex, res.Feedback.IsAnswerCorrect,
		res.Feedback.LanguageUnfamiliarityPrompt, event.Duration.Milliseconds(),
		string(paragraphs), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Stats returns aggregate counts. An empty questionID covers every question.
func (l *SubmissionLog) Stats(ctx context.Context, questionID string) (*Stats, error) {
	where, args := "", []any{}
	if questionID != "" {
		where = " WHERE question_id = ?"
		args = append(args, questionID)
	}

	stats := &Stats{QuestionID: questionID, ByCategory: make(map[string]int)}
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_correct), 0), COALESCE(SUM(language_prompt), 0),
			COUNT(DISTINCT session_id)
		FROM submissions`+where, args...,
	).Scan(&stats.Total, &stats.Correct, &stats.LanguagePrompts, &stats.Sessions)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM submissions`+where+` GROUP BY category`, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}

// Recent returns the latest submissions of a session, newest first.
func (l *SubmissionLog) Recent(ctx context.Context, sessionID string, limit int) ([]SubmissionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session_id, question_id, attempt, category, task_index, specific_test_index,
			message_index, is_correct, language_prompt, duration_ms, feedback, created_at
		FROM submissions WHERE session_id = ?
		ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var (
			r          SubmissionRecord
			category   string
			durationMS int64
			feedback   string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.QuestionID, &r.Attempt, &category,
			&r.Key.TaskIndex, &r.Key.SpecificTestIndex, &r.MessageIndex, &r.IsCorrect,
			&r.LanguagePrompt, &durationMS, &feedback, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		r.Key.Category = domain.FeedbackCategory(category)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(feedback), &r.Paragraphs); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes submissions older than the given duration.
func (l *SubmissionLog) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := l.db.ExecContext(ctx, "DELETE FROM submissions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	return result.RowsAffected()
}
