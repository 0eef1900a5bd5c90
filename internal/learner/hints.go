package learner

import (
	"fmt"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

// PreviousMessageIndex returns the message index shown last time if the
// previous feedback came from the same rule. It panics for categories that
// do not cycle hints.
func (s *State) PreviousMessageIndex(key domain.FeedbackKey) (int, bool) {
	if !key.Category.CyclesHints() {
		panic(fmt.Errorf("%w: %s", domain.ErrInvalidFeedbackCategory, key.Category))
	}
	if s.PreviousFeedback == nil || s.PreviousFeedback.Key != key {
		return 0, false
	}
	return s.PreviousFeedback.MessageIndex, true
}

// hintsExhausted reports whether the previous submission already fell back
// to generic feedback because key ran out of messages.
func (s *State) hintsExhausted(key domain.FeedbackKey) bool {
	return s.PreviousFeedback != nil &&
		s.PreviousFeedback.ExhaustedKey != nil &&
		*s.PreviousFeedback.ExhaustedKey == key
}

func (s *State) codeUnchanged(rawCode string) bool {
	return s.PreviousRawCode != nil && *s.PreviousRawCode == rawCode
}

// SelectMessage picks the hint to show for a buggy-output or suite-level
// rule. Identical code on the same rule repeats the last hint, changed code
// on the same rule advances, anything else starts over at the first hint.
// ok is false once the list is exhausted; the caller then shows generic
// feedback and nothing is persisted here.
func (s *State) SelectMessage(key domain.FeedbackKey, messages []string, rawCode string) (message string, index int, ok bool) {
	if s.hintsExhausted(key) {
		return "", len(messages), false
	}

	index = 0
	if prev, same := s.PreviousMessageIndex(key); same {
		index = prev
		if !s.codeUnchanged(rawCode) {
			index = prev + 1
		}
	}

	if index >= len(messages) {
		return "", index, false
	}
	return messages[index], index, true
}
