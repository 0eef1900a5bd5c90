package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/learner"
	"github.com/felixgeelhaar/nudge/internal/session"
)

// Ensure SessionStore implements the session storage interface.
var _ session.SessionStore = (*SessionStore)(nil)

// SessionStore implements session persistence backed by SQLite. Learner
// state and the last result are stored as JSON.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, question_id, language, status, state,
	submission_count, correct_count, last_result, last_submitted_at,
	created_at, updated_at`

// Save persists a session (insert or update).
func (s *SessionStore) Save(sess *session.Session) error {
	state := sess.State
	if state == nil {
		state = learner.NewState()
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var lastResult []byte
	if sess.LastResult != nil {
		lastResult, err = json.Marshal(sess.LastResult)
		if err != nil {
			return fmt.Errorf("marshal last result: %w", err)
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, state=excluded.state,
			submission_count=excluded.submission_count, correct_count=excluded.correct_count,
			last_result=excluded.last_result, last_submitted_at=excluded.last_submitted_at,
			updated_at=excluded.updated_at`,
		sess.ID, sess.QuestionID, sess.Language, string(sess.Status), string(stateJSON),
		sess.SubmissionCount, sess.CorrectCount, nullString(lastResult), nullTime(sess.LastSubmittedAt),
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*session.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	return sess, err
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// List returns all sessions, newest first.
func (s *SessionStore) List() ([]*session.Session, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Session, error) {
	var (
		sess          session.Session
		status        string
		stateJSON     string
		lastResult    sql.NullString
		lastSubmitted sql.NullTime
	)
	err := row.Scan(
		&sess.ID, &sess.QuestionID, &sess.Language, &status, &stateJSON,
		&sess.SubmissionCount, &sess.CorrectCount, &lastResult, &lastSubmitted,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.Status = session.Status(status)
	sess.State = learner.NewState()
	if err := json.Unmarshal([]byte(stateJSON), sess.State); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if lastResult.Valid {
		sess.LastResult = &domain.SubmissionResult{}
		if err := json.Unmarshal([]byte(lastResult.String), sess.LastResult); err != nil {
			return nil, fmt.Errorf("unmarshal last result: %w", err)
		}
	}
	if lastSubmitted.Valid {
		t := lastSubmitted.Time
		sess.LastSubmittedAt = &t
	}
	return &sess, nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
