package learner

// RecordSyntaxError counts a syntax error towards the language streak.
func (s *State) RecordSyntaxError() {
	s.recordLanguageUnfamiliarityError()
}

// RecordPrereqWrongLanguageError counts use of another language's
// constructs towards the language streak.
func (s *State) RecordPrereqWrongLanguageError() {
	s.recordLanguageUnfamiliarityError()
}

func (s *State) recordLanguageUnfamiliarityError() {
	s.NumConsecutiveLanguageUnfamiliarityErrors++
	s.NumConsecutiveSameRuntimeErrors = 0
	s.PreviousRuntimeError = nil
}

// RecordRuntimeError records the runtime error string of a submission that
// executed. An empty string means the code ran without raising.
func (s *State) RecordRuntimeError(errString string) {
	switch {
	case errString == "":
		s.NumConsecutiveSameRuntimeErrors = 0
	case s.PreviousRuntimeError != nil && *s.PreviousRuntimeError == errString:
		s.NumConsecutiveSameRuntimeErrors++
	default:
		s.NumConsecutiveSameRuntimeErrors = 1
	}
	s.NumConsecutiveLanguageUnfamiliarityErrors = 0
	s.PreviousRuntimeError = &errString
}

// NeedsLanguageUnfamiliarityPrompt reports whether either streak reached threshold.
func (s *State) NeedsLanguageUnfamiliarityPrompt(threshold int) bool {
	if threshold < 1 {
		threshold = DefaultLanguageUnfamiliarityThreshold
	}
	return max(s.NumConsecutiveLanguageUnfamiliarityErrors, s.NumConsecutiveSameRuntimeErrors) >= threshold
}

// ResetLanguageUnfamiliarity zeroes both streaks. Called when the learner
// dismisses the prompt.
func (s *State) ResetLanguageUnfamiliarity() {
	s.NumConsecutiveLanguageUnfamiliarityErrors = 0
	s.NumConsecutiveSameRuntimeErrors = 0
	s.PreviousRuntimeError = nil
}
