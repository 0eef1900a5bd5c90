package question

import (
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

// Registry provides access to loaded questions
type Registry struct {
	loader    *Loader
	mu        sync.RWMutex
	questions map[string]*domain.Question
	loaded    bool
}

// NewRegistry creates a new question registry
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:    loader,
		questions: make(map[string]*domain.Question),
	}
}

// Load loads all questions into memory
func (r *Registry) Load() error {
	questions, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range questions {
		r.questions[q.ID] = q
	}
	r.loaded = true
	return nil
}

// Reload replaces the loaded questions. On failure the previous set is kept.
func (r *Registry) Reload() error {
	questions, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("reload questions: %w", err)
	}

	fresh := make(map[string]*domain.Question, len(questions))
	for _, q := range questions {
		fresh[q.ID] = q
	}

	r.mu.Lock()
	r.questions = fresh
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Get returns a question by id
func (r *Registry) Get(id string) (*domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, id)
	}
	return q, nil
}

// List returns all questions sorted by id
func (r *Registry) List() []*domain.Question {
	r.mu.RLock()
	defer r.mu.RUnlock()

	questions := make([]*domain.Question, 0, len(r.questions))
	for _, q := range r.questions {
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions
}

// Count returns the number of loaded questions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.questions)
}

// IsLoaded reports whether Load has completed successfully
func (r *Registry) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}
