package domain

import (
	"errors"
	"testing"
)

func validQuestion() *Question {
	return &Question{
		ID:       "reverse-words",
		Title:    "Reverse words",
		Language: "python",
		Tasks: []Task{
			{
				MainFunctionName: "reverseWords",
				TestSuites: []TestSuite{
					{ID: "SAMPLE_INPUT", TestCases: []TestCase{{Input: "Hello, John", AllowedOutputs: []any{"olleH, nhoJ"}}}},
					{ID: "GENERAL_CASE", TestCases: []TestCase{{Input: "a b", AllowedOutputs: []any{"a b"}}}},
				},
				BuggyOutputTests: []BuggyOutputTest{
					{BuggyFunctionName: "reverseAll", IgnoredTestSuiteIDs: []string{"SAMPLE_INPUT"}, Messages: []string{"one"}},
				},
				SuiteLevelTests: []SuiteLevelTest{
					{TestSuiteIDsThatMustPass: []string{"SAMPLE_INPUT"}, TestSuiteIDsThatMustFail: []string{"GENERAL_CASE"}, Messages: []string{"one"}},
				},
			},
		},
	}
}

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{"valid", func(q *Question) {}, false},
		{"missing id", func(q *Question) { q.ID = " " }, true},
		{"no tasks", func(q *Question) { q.Tasks = nil }, true},
		{"missing main function", func(q *Question) { q.Tasks[0].MainFunctionName = "" }, true},
		{"duplicate suite", func(q *Question) {
			q.Tasks[0].TestSuites = append(q.Tasks[0].TestSuites, TestSuite{ID: "SAMPLE_INPUT"})
		}, true},
		{"buggy without messages", func(q *Question) { q.Tasks[0].BuggyOutputTests[0].Messages = nil }, true},
		{"buggy ignores unknown suite", func(q *Question) {
			q.Tasks[0].BuggyOutputTests[0].IgnoredTestSuiteIDs = []string{"NOPE"}
		}, true},
		{"suite level without messages", func(q *Question) { q.Tasks[0].SuiteLevelTests[0].Messages = nil }, true},
		{"suite level unknown suite", func(q *Question) {
			q.Tasks[0].SuiteLevelTests[0].TestSuiteIDsThatMustFail = []string{"NOPE"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(q)
			err := q.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidQuestion) {
				t.Errorf("Validate() error = %v, want ErrInvalidQuestion", err)
			}
		})
	}
}

func TestQuestion_Task(t *testing.T) {
	q := validQuestion()

	if _, err := q.Task(0); err != nil {
		t.Errorf("Task(0) error = %v", err)
	}
	if _, err := q.Task(1); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Task(1) error = %v, want ErrTaskNotFound", err)
	}
	if _, err := q.Task(-1); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Task(-1) error = %v, want ErrTaskNotFound", err)
	}
}

func TestTask_Suite(t *testing.T) {
	task := validQuestion().Tasks[0]

	s, ok := task.Suite("GENERAL_CASE")
	if !ok || s.ID != "GENERAL_CASE" {
		t.Errorf("Suite(GENERAL_CASE) = %v, %v", s, ok)
	}
	if _, ok := task.Suite("missing"); ok {
		t.Error("Suite(missing) should not be found")
	}
	if got := task.TestCaseCount(); got != 2 {
		t.Errorf("TestCaseCount() = %d, want 2", got)
	}
}

func TestTestCase_IsCorrect(t *testing.T) {
	tc := TestCase{Input: "x", AllowedOutputs: []any{true, 3, []any{"a", "b"}}}

	tests := []struct {
		name   string
		output any
		want   bool
	}{
		{"bool", true, true},
		{"int from yaml vs float from executor", 3.0, true},
		{"typed slice", []string{"a", "b"}, true},
		{"wrong order", []string{"b", "a"}, false},
		{"false", false, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tc.IsCorrect(tt.output); got != tt.want {
				t.Errorf("IsCorrect(%v) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestBuggyOutputTest_IsIgnored(t *testing.T) {
	b := BuggyOutputTest{IgnoredTestSuiteIDs: []string{"SAMPLE_INPUT"}}
	if !b.IsIgnored("SAMPLE_INPUT") {
		t.Error("IsIgnored(SAMPLE_INPUT) = false, want true")
	}
	if b.IsIgnored("GENERAL_CASE") {
		t.Error("IsIgnored(GENERAL_CASE) = true, want false")
	}
}
