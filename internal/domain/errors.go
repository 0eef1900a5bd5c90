package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by services and
// transports to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Question errors
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrTaskNotFound     = errors.New("task not found")
	ErrSuiteNotFound    = errors.New("test suite not found")
)

// Feedback errors
var (
	// ErrInvalidFeedbackCategory is raised when a category that does not
	// support hint cycling is used to look up a message index.
	ErrInvalidFeedbackCategory = errors.New("invalid feedback category")
)

// Evaluation errors
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNilLearnerState     = errors.New("learner state is nil")
)

// General errors
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternalError = errors.New("internal error")
)
