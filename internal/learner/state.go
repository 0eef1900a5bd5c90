// Package learner holds the per-session memory used to pick hints and to
// detect learners who are stuck on the language rather than the problem.
package learner

import "github.com/felixgeelhaar/nudge/internal/domain"

// DefaultLanguageUnfamiliarityThreshold is the streak length at which the
// language-unfamiliarity prompt is raised.
const DefaultLanguageUnfamiliarityThreshold = 5

// State is the cross-submission memory of one learner on one question.
// A State is owned by a single session and is not safe for concurrent use.
type State struct {
	PreviousRawCode  *string                 `json:"previous_raw_code,omitempty"`
	PreviousFeedback *domain.FeedbackDetails `json:"previous_feedback,omitempty"`

	NumConsecutiveLanguageUnfamiliarityErrors int     `json:"num_consecutive_language_unfamiliarity_errors"`
	NumConsecutiveSameRuntimeErrors           int     `json:"num_consecutive_same_runtime_errors"`
	PreviousRuntimeError                      *string `json:"previous_runtime_error,omitempty"`
}

// NewState returns a zeroed state.
func NewState() *State {
	return &State{}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	if s.PreviousRawCode != nil {
		code := *s.PreviousRawCode
		c.PreviousRawCode = &code
	}
	if s.PreviousFeedback != nil {
		fd := *s.PreviousFeedback
		if fd.ExhaustedKey != nil {
			k := *fd.ExhaustedKey
			fd.ExhaustedKey = &k
		}
		c.PreviousFeedback = &fd
	}
	if s.PreviousRuntimeError != nil {
		e := *s.PreviousRuntimeError
		c.PreviousRuntimeError = &e
	}
	return &c
}

// RecordRawCode remembers the code of the submission just evaluated.
func (s *State) RecordRawCode(code string) {
	s.PreviousRawCode = &code
}

// RecordFeedback remembers the feedback of the submission just evaluated.
func (s *State) RecordFeedback(details domain.FeedbackDetails) {
	s.PreviousFeedback = &details
}
