package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/evaluation"
	"github.com/felixgeelhaar/nudge/internal/runner"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrStaleSubmission  = errors.New("submission superseded by a newer one")
	ErrQuestionRequired = errors.New("question id required")
)

// Service manages learner sessions
type Service struct {
	store     SessionStore
	questions QuestionSource
	evaluator Evaluator
	sinks     []EventSink
	logger    *slog.Logger

	mu       sync.Mutex
	trackers map[string]*tracker
}

// tracker serializes commits for one session and remembers the newest
// submission so older ones can be cancelled and discarded.
type tracker struct {
	mu         sync.Mutex
	generation uint64
	dismissals uint64
	cancel     context.CancelFunc
}

// NewService creates a new session service
func NewService(store SessionStore, questions QuestionSource, evaluator Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		questions: questions,
		evaluator: evaluator,
		logger:    logger,
		trackers:  make(map[string]*tracker),
	}
}

// AddSink registers a consumer of submission events
func (s *Service) AddSink(sink EventSink) {
	s.sinks = append(s.sinks, sink)
}

// CreateRequest contains data for creating a session
type CreateRequest struct {
	QuestionID string `json:"question_id"`
}

// Create starts a new session on a question
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if req.QuestionID == "" {
		return nil, ErrQuestionRequired
	}
	q, err := s.questions.Get(req.QuestionID)
	if err != nil {
		return nil, err
	}

	session := NewSession(q.ID, q.Language)
	if err := s.store.Save(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("session created", "session_id", session.ID, "question_id", q.ID)
	return session, nil
}

// Get retrieves a session by ID
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(id)
}

// List returns all sessions
func (s *Service) List(ctx context.Context) ([]*Session, error) {
	return s.store.List()
}

// Delete removes a session and cancels its in-flight submission
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if tr, ok := s.trackers[id]; ok {
		tr.mu.Lock()
		tr.generation++
		if tr.cancel != nil {
			tr.cancel()
		}
		tr.mu.Unlock()
		delete(s.trackers, id)
	}
	s.mu.Unlock()

	return s.store.Delete(id)
}

func (s *Service) tracker(id string) *tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trackers[id]
	if !ok {
		tr = &tracker{}
		s.trackers[id] = tr
	}
	return tr
}

// forget drops the tracker created for a session that does not exist.
func (s *Service) forget(id string, tr *tracker, err error) {
	if !errors.Is(err, ErrSessionNotFound) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trackers[id] == tr {
		delete(s.trackers, id)
	}
}

// ticket identifies a submission's view of its tracker when it started.
type ticket struct {
	generation uint64
	dismissals uint64
}

// begin registers a new submission, cancelling any older one still running.
func (tr *tracker) begin(parent context.Context) (context.Context, ticket, func()) {
	ctx, cancel := context.WithCancel(parent)

	tr.mu.Lock()
	if tr.cancel != nil {
		tr.cancel()
	}
	tr.generation++
	t := ticket{generation: tr.generation, dismissals: tr.dismissals}
	tr.cancel = cancel
	tr.mu.Unlock()

	return ctx, t, func() {
		tr.mu.Lock()
		if tr.generation == t.generation {
			tr.cancel = nil
		}
		tr.mu.Unlock()
		cancel()
	}
}

// Submit evaluates code for a session. Evaluation works on a copy of the
// learner state; the copy is committed only if no newer submission for the
// same session has started in the meantime, otherwise ErrStaleSubmission is
// returned and the session is left untouched.
func (s *Service) Submit(ctx context.Context, id, code string) (*domain.SubmissionResult, error) {
	tr := s.tracker(id)
	runCtx, t, done := tr.begin(ctx)
	defer done()

	// The snapshot is taken after begin so that it includes every commit
	// made by an earlier submission.
	session, err := s.store.Get(id)
	if err != nil {
		s.forget(id, tr, err)
		return nil, err
	}
	q, err := s.questions.Get(session.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("question for session %s: %w", id, err)
	}

	lang, err := runner.ParseLanguage(q.Language)
	if err != nil {
		return nil, err
	}

	state := session.learnerState()
	start := time.Now()
	result, err := s.evaluator.ProcessSolution(runCtx, evaluation.Submission{
		Tasks:         q.Tasks,
		StarterCode:   q.StarterCode,
		StudentCode:   code,
		AuxiliaryCode: q.AuxiliaryCode,
		Language:      lang,
	}, state)
	if err != nil {
		return nil, fmt.Errorf("evaluate submission: %w", err)
	}
	elapsed := time.Since(start)

	tr.mu.Lock()
	if tr.generation != t.generation {
		tr.mu.Unlock()
		s.logger.Debug("discarding stale submission", "session_id", id)
		return nil, ErrStaleSubmission
	}
	current, err := s.store.Get(id)
	if err != nil {
		tr.mu.Unlock()
		return nil, err
	}
	if tr.dismissals != t.dismissals {
		// The prompt was dismissed while this submission was running.
		state.ResetLanguageUnfamiliarity()
	}
	now := time.Now()
	current.recordResult(state, result, now)
	err = s.store.Save(current)
	tr.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.publish(context.WithoutCancel(ctx), SubmissionEvent{
		SessionID:  id,
		QuestionID: current.QuestionID,
		Attempt:    current.SubmissionCount,
		Result:     result,
		Duration:   elapsed,
		CreatedAt:  now,
	})

	return result, nil
}

// DismissLanguagePrompt resets the language-unfamiliarity streaks after the
// learner acknowledged the prompt.
func (s *Service) DismissLanguagePrompt(ctx context.Context, id string) (*Session, error) {
	tr := s.tracker(id)
	tr.mu.Lock()
	defer tr.mu.Unlock()

	session, err := s.store.Get(id)
	if err != nil {
		s.forget(id, tr, err)
		return nil, err
	}
	state := session.learnerState()
	state.ResetLanguageUnfamiliarity()
	session.State = state
	session.UpdatedAt = time.Now()

	if err := s.store.Save(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	tr.dismissals++
	return session, nil
}

func (s *Service) publish(ctx context.Context, event SubmissionEvent) {
	for _, sink := range s.sinks {
		if err := sink.OnSubmission(ctx, event); err != nil {
			s.logger.Warn("submission sink failed", "session_id", event.SessionID, "error", err)
		}
	}
}
