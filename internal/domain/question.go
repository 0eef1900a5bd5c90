package domain

import (
	"fmt"
	"strings"
)

// Question is a multi-part coding question: starter code shown to the
// learner, auxiliary code linked in at evaluation time, and an ordered
// list of tasks.
type Question struct {
	ID            string
	Title         string
	Language      string
	StarterCode   string
	AuxiliaryCode string
	Tasks         []Task
}

// Task is one curriculum step. Tasks are immutable once constructed.
type Task struct {
	Instructions       []string
	MainFunctionName   string
	InputFunctionName  string // optional transform applied to inputs
	OutputFunctionName string // optional transform applied to outputs
	TestSuites         []TestSuite
	BuggyOutputTests   []BuggyOutputTest
	SuiteLevelTests    []SuiteLevelTest
}

// TestSuite is a named group of test cases. A suite passes iff every case passes.
type TestSuite struct {
	ID                string
	HumanReadableName string
	TestCases         []TestCase
}

// TestCase pairs an input with the set of outputs accepted for it.
type TestCase struct {
	Input          any
	AllowedOutputs []any
}

// BuggyOutputTest describes a known misconception via a reference
// implementation that reproduces it.
type BuggyOutputTest struct {
	BuggyFunctionName   string
	IgnoredTestSuiteIDs []string
	Messages            []string
}

// SuiteLevelTest is a rule over whole-suite pass/fail combinations.
type SuiteLevelTest struct {
	TestSuiteIDsThatMustPass []string
	TestSuiteIDsThatMustFail []string
	Messages                 []string
}

// IsCorrect reports whether output is one of the allowed outputs.
func (c TestCase) IsCorrect(output any) bool {
	for _, allowed := range c.AllowedOutputs {
		if ValuesEqual(allowed, output) {
			return true
		}
	}
	return false
}

// IsIgnored reports whether the suite is excluded from buggy comparison.
func (b BuggyOutputTest) IsIgnored(suiteID string) bool {
	for _, id := range b.IgnoredTestSuiteIDs {
		if id == suiteID {
			return true
		}
	}
	return false
}

// Suite returns the suite with the given id.
func (t *Task) Suite(id string) (*TestSuite, bool) {
	for i := range t.TestSuites {
		if t.TestSuites[i].ID == id {
			return &t.TestSuites[i], true
		}
	}
	return nil, false
}

// TestCaseCount returns the total number of cases across all suites.
func (t *Task) TestCaseCount() int {
	n := 0
	for _, s := range t.TestSuites {
		n += len(s.TestCases)
	}
	return n
}

// Task returns the task at index.
func (q *Question) Task(index int) (*Task, error) {
	if index < 0 || index >= len(q.Tasks) {
		return nil, fmt.Errorf("%w: index %d", ErrTaskNotFound, index)
	}
	return &q.Tasks[index], nil
}

// Validate checks the structural rules every question must satisfy before
// it can be evaluated against.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if len(q.Tasks) == 0 {
		return fmt.Errorf("%w: %s has no tasks", ErrInvalidQuestion, q.ID)
	}
	for i := range q.Tasks {
		if err := q.Tasks[i].validate(); err != nil {
			return fmt.Errorf("%w: %s task %d: %s", ErrInvalidQuestion, q.ID, i, err)
		}
	}
	return nil
}

func (t *Task) validate() error {
	if t.MainFunctionName == "" {
		return fmt.Errorf("missing main function name")
	}
	seen := make(map[string]bool, len(t.TestSuites))
	for _, s := range t.TestSuites {
		if s.ID == "" {
			return fmt.Errorf("test suite with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate test suite id %q", s.ID)
		}
		seen[s.ID] = true
	}
	for i, b := range t.BuggyOutputTests {
		if b.BuggyFunctionName == "" {
			return fmt.Errorf("buggy output test %d: missing function name", i)
		}
		if len(b.Messages) == 0 {
			return fmt.Errorf("buggy output test %d: no messages", i)
		}
		for _, id := range b.IgnoredTestSuiteIDs {
			if !seen[id] {
				return fmt.Errorf("buggy output test %d: unknown suite %q", i, id)
			}
		}
	}
	for i, s := range t.SuiteLevelTests {
		if len(s.Messages) == 0 {
			return fmt.Errorf("suite level test %d: no messages", i)
		}
		for _, id := range append(append([]string{}, s.TestSuiteIDsThatMustPass...), s.TestSuiteIDsThatMustFail...) {
			if !seen[id] {
				return fmt.Errorf("suite level test %d: unknown suite %q", i, id)
			}
		}
	}
	return nil
}
