// Package evaluation implements the submission cascade: it decides which
// single piece of feedback a learner sees for a submission and updates the
// learner's hint and streak state accordingly.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/feedback"
	"github.com/felixgeelhaar/nudge/internal/learner"
	"github.com/felixgeelhaar/nudge/internal/runner"
)

// Prerequisite sub-cases, used as the specific test index of PREREQ_FAILURE.
const (
	PrereqMissingStarterCode = iota
	PrereqDisallowedImport
	PrereqGlobalCode
	PrereqWrongLanguage
)

// stackOverflowError is recorded in the runtime streak for unbounded recursion.
const stackOverflowError = "RecursionError: maximum recursion depth exceeded"

// Config configures the cascade
type Config struct {
	LanguageUnfamiliarityThreshold int
	// SupportedLibraries per language; languages not listed use the
	// executor's defaults.
	SupportedLibraries map[runner.Language][]string
}

// DefaultConfig returns the default cascade configuration
func DefaultConfig() Config {
	return Config{
		LanguageUnfamiliarityThreshold: learner.DefaultLanguageUnfamiliarityThreshold,
		SupportedLibraries: map[runner.Language][]string{
			runner.LanguagePython: runner.DefaultSupportedPythonLibraries,
		},
	}
}

// Submission is one attempt at a question.
type Submission struct {
	Tasks         []domain.Task
	StarterCode   string
	StudentCode   string
	AuxiliaryCode string
	Language      runner.Language
}

// Service evaluates submissions
type Service struct {
	exec    runner.Executor
	builder *feedback.Builder
	config  Config
	logger  *slog.Logger
}

// NewService creates a new evaluation service
func NewService(exec runner.Executor, builder *feedback.Builder, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LanguageUnfamiliarityThreshold < 1 {
		cfg.LanguageUnfamiliarityThreshold = learner.DefaultLanguageUnfamiliarityThreshold
	}
	return &Service{
		exec:    exec,
		builder: builder,
		config:  cfg,
		logger:  logger,
	}
}

// Threshold returns the configured language-unfamiliarity threshold.
func (s *Service) Threshold() int {
	return s.config.LanguageUnfamiliarityThreshold
}

// outcome is the decision of one cascade stage.
type outcome struct {
	feedback domain.Feedback
	details  domain.FeedbackDetails
	stdout   *string
}

// ProcessSolution evaluates sub and updates state for the next submission.
// Every learner mistake is reported in the result; an error is returned
// only for invalid arguments.
func (s *Service) ProcessSolution(ctx context.Context, sub Submission, state *learner.State) (*domain.SubmissionResult, error) {
	if state == nil {
		return nil, domain.ErrNilLearnerState
	}
	if !sub.Language.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, sub.Language)
	}
	if len(sub.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks", domain.ErrInvalidInput)
	}

	out := s.evaluate(ctx, sub, state)

	state.RecordFeedback(out.details)
	state.RecordRawCode(sub.StudentCode)

	if state.NeedsLanguageUnfamiliarityPrompt(s.config.LanguageUnfamiliarityThreshold) {
		s.builder.AddLanguageUnfamiliarityPrompt(&out.feedback)
	}

	s.logger.Debug("submission evaluated",
		"category", out.details.Key.Category,
		"task_index", out.details.Key.TaskIndex,
		"specific_test_index", out.details.Key.SpecificTestIndex,
		"message_index", out.details.MessageIndex,
		"language_prompt", out.feedback.LanguageUnfamiliarityPrompt)

	return &domain.SubmissionResult{
		Feedback: out.feedback,
		Stdout:   out.stdout,
		Details:  out.details,
	}, nil
}

func (s *Service) evaluate(ctx context.Context, sub Submission, state *learner.State) outcome {
	if out, done := s.checkPrerequisites(ctx, sub, state); done {
		return out
	}
	if out, done := s.checkSyntax(ctx, sub, state); done {
		return out
	}

	program := runner.Program{
		Language:      sub.Language,
		StudentCode:   sub.StudentCode,
		AuxiliaryCode: sub.AuxiliaryCode,
	}
	var stdout strings.Builder

	for i := range sub.Tasks {
		task := &sub.Tasks[i]
		run := s.runTask(ctx, program, i, task, &stdout, state)
		if run.decided != nil {
			run.decided.stdout = stringPtr(stdout.String())
			return *run.decided
		}
		if run.failure == nil {
			continue
		}

		state.RecordRuntimeError("")
		out := s.explainFailure(ctx, sub, i, task, run, state)
		out.stdout = stringPtr(stdout.String())
		return out
	}

	state.RecordRuntimeError("")
	last := len(sub.Tasks) - 1
	return outcome{
		feedback: s.builder.Success(),
		details: domain.FeedbackDetails{Key: domain.FeedbackKey{
			Category:          domain.CategorySuccess,
			TaskIndex:         last,
			SpecificTestIndex: domain.NoSpecificTest,
		}},
		stdout: stringPtr(stdout.String()),
	}
}

func (s *Service) checkPrerequisites(ctx context.Context, sub Submission, state *learner.State) (outcome, bool) {
	supported := s.supportedLibraries(sub.Language)
	res, err := s.exec.CheckPrerequisites(ctx, runner.PrereqRequest{
		Language:           sub.Language,
		Code:               sub.StudentCode,
		StarterCode:        sub.StarterCode,
		SupportedLibraries: supported,
	})
	if err != nil {
		return s.executorFailure(err, nil, -1, nil, state), true
	}

	key := func(subCase int) domain.FeedbackDetails {
		return domain.FeedbackDetails{Key: domain.FeedbackKey{
			Category:          domain.CategoryPrereqFailure,
			TaskIndex:         -1,
			SpecificTestIndex: subCase,
		}}
	}

	switch {
	case len(res.MissingFunctions) > 0:
		return outcome{feedback: s.builder.MissingStarterCode(sub.StarterCode), details: key(PrereqMissingStarterCode)}, true
	case len(res.DisallowedImports) > 0:
		return outcome{feedback: s.builder.DisallowedImports(res.DisallowedImports, supported), details: key(PrereqDisallowedImport)}, true
	case res.HasGlobalCode:
		return outcome{feedback: s.builder.GlobalCode(), details: key(PrereqGlobalCode)}, true
	case res.WrongLanguage != nil:
		state.RecordPrereqWrongLanguageError()
		wl := res.WrongLanguage
		return outcome{feedback: s.builder.WrongLanguage(wl.Message, wl.Line, wl.LineNumber), details: key(PrereqWrongLanguage)}, true
	}
	return outcome{}, false
}

func (s *Service) checkSyntax(ctx context.Context, sub Submission, state *learner.State) (outcome, bool) {
	res, err := s.exec.CheckSyntax(ctx, sub.Language, sub.StudentCode)
	if err != nil {
		return s.executorFailure(err, nil, -1, nil, state), true
	}
	if res.Valid {
		return outcome{}, false
	}

	state.RecordSyntaxError()
	return outcome{
		feedback: s.builder.SyntaxError(res.String(), res.ErrorLineNumber),
		details:  domain.FeedbackDetails{Key: domain.NewFeedbackKey(domain.CategorySyntaxError)},
	}, true
}

// caseRef locates a test case within a task.
type caseRef struct {
	suite int
	cas   int
}

// taskRun is the result of running one task's test cases.
type taskRun struct {
	refs    []caseRef
	outputs []any

	// decided is set when execution itself failed.
	decided *outcome
	// failure is the first case whose output is not allowed.
	failure *caseRef
	actual  any
}

func taskCalls(task *domain.Task, function string, include func(suite *domain.TestSuite) bool) ([]runner.Call, []caseRef) {
	var (
		calls []runner.Call
		refs  []caseRef
	)
	for si := range task.TestSuites {
		suite := &task.TestSuites[si]
		if include != nil && !include(suite) {
			continue
		}
		for ci, tc := range suite.TestCases {
			calls = append(calls, runner.Call{
				Function:       function,
				InputFunction:  task.InputFunctionName,
				OutputFunction: task.OutputFunctionName,
				Input:          tc.Input,
			})
			refs = append(refs, caseRef{suite: si, cas: ci})
		}
	}
	return calls, refs
}

// runTask runs every test case of a task in declared order and checks
// the outputs.
func (s *Service) runTask(ctx context.Context, program runner.Program, taskIndex int, task *domain.Task, stdout *strings.Builder, state *learner.State) taskRun {
	calls, refs := taskCalls(task, task.MainFunctionName, nil)
	results, err := runner.RunAll(ctx, s.exec, program, calls)
	for _, r := range results {
		stdout.WriteString(r.Stdout)
	}

	if err != nil || (len(results) < len(calls) && !lastFailed(results)) {
		if err == nil {
			err = fmt.Errorf("%w: %d of %d calls returned", runner.ErrExecutorFailed, len(results), len(calls))
		}
		var input any
		if len(results) < len(calls) {
			input = calls[len(results)].Input
		}
		out := s.executorFailure(err, input, taskIndex, calls, state)
		return taskRun{decided: &out}
	}

	for j, r := range results {
		if !r.Failed() {
			continue
		}
		out := s.runtimeFailure(r, calls[j].Input, taskIndex, state)
		return taskRun{decided: &out}
	}

	run := taskRun{refs: refs, outputs: make([]any, len(results))}
	for j, r := range results {
		run.outputs[j] = r.Output
	}
	for j, ref := range refs {
		tc := task.TestSuites[ref.suite].TestCases[ref.cas]
		if !tc.IsCorrect(run.outputs[j]) {
			failed := ref
			run.failure = &failed
			run.actual = run.outputs[j]
			break
		}
	}
	return run
}

func lastFailed(results []runner.RunResult) bool {
	return len(results) > 0 && results[len(results)-1].Failed()
}

func (s *Service) runtimeFailure(r runner.RunResult, input any, taskIndex int, state *learner.State) outcome {
	details := domain.FeedbackDetails{Key: domain.FeedbackKey{
		Category:          domain.CategoryRuntimeError,
		TaskIndex:         taskIndex,
		SpecificTestIndex: domain.NoSpecificTest,
	}}

	if r.StackOverflow {
		state.RecordRuntimeError(stackOverflowError)
		return outcome{feedback: s.builder.StackOverflow(), details: details}
	}

	errText := r.Error.String()
	state.RecordRuntimeError(errText)
	if r.Error.Type == "NameError" && r.Error.Name != "" {
		return outcome{feedback: s.builder.UndeclaredVariable(r.Error.Name), details: details}
	}
	return outcome{feedback: s.builder.RuntimeError(input, errText, r.Error.Line), details: details}
}

// executorFailure reports a failure of the executor itself the same way
// as a runtime error so it is never silently swallowed.
func (s *Service) executorFailure(err error, input any, taskIndex int, calls []runner.Call, state *learner.State) outcome {
	errType := "ExecutorError"
	if errors.Is(err, runner.ErrTimeout) {
		errType = "TimeoutError"
	}
	errText := errType + ": " + err.Error()
	s.logger.Warn("executor failed during evaluation", "error", err, "task_index", taskIndex, "calls", len(calls))

	state.RecordRuntimeError(errText)
	fb := s.builder.ExecutorFailure(errText)
	if calls != nil {
		fb = s.builder.RuntimeError(input, errText, 0)
	}
	return outcome{
		feedback: fb,
		details: domain.FeedbackDetails{Key: domain.FeedbackKey{
			Category:          domain.CategoryRuntimeError,
			TaskIndex:         taskIndex,
			SpecificTestIndex: domain.NoSpecificTest,
		}},
	}
}

// explainFailure picks the feedback for a task that failed correctness:
// a known bug, then a suite-level rule, then generic feedback.
func (s *Service) explainFailure(ctx context.Context, sub Submission, taskIndex int, task *domain.Task, run taskRun, state *learner.State) outcome {
	if bi, ok := s.findBuggyOutputTest(ctx, sub, taskIndex, task, run); ok {
		bt := task.BuggyOutputTests[bi]
		key := domain.FeedbackKey{Category: domain.CategoryKnownBugFailure, TaskIndex: taskIndex, SpecificTestIndex: bi}
		return s.hintOrFallback(key, bt.Messages, sub.StudentCode, task, taskIndex, run, state)
	}

	if si, ok := findSuiteLevelTest(task, run); ok {
		st := task.SuiteLevelTests[si]
		key := domain.FeedbackKey{Category: domain.CategorySuiteLevelFailure, TaskIndex: taskIndex, SpecificTestIndex: si}
		return s.hintOrFallback(key, st.Messages, sub.StudentCode, task, taskIndex, run, state)
	}

	return s.genericFeedback(sub.StudentCode, task, taskIndex, run, nil)
}

func (s *Service) hintOrFallback(key domain.FeedbackKey, messages []string, code string, task *domain.Task, taskIndex int, run taskRun, state *learner.State) outcome {
	msg, index, ok := state.SelectMessage(key, messages, code)
	if !ok {
		exhausted := key
		return s.genericFeedback(code, task, taskIndex, run, &exhausted)
	}
	return outcome{
		feedback: s.builder.Hint(msg),
		details:  domain.FeedbackDetails{Key: key, MessageIndex: index},
	}
}

func (s *Service) genericFeedback(code string, task *domain.Task, taskIndex int, run taskRun, exhausted *domain.FeedbackKey) outcome {
	suite := task.TestSuites[run.failure.suite]
	tc := suite.TestCases[run.failure.cas]
	return outcome{
		feedback: s.builder.Correctness(suite.ID, tc, run.actual, code),
		details: domain.FeedbackDetails{
			Key: domain.FeedbackKey{
				Category:          domain.CategoryCorrectnessFailure,
				TaskIndex:         taskIndex,
				SpecificTestIndex: domain.NoSpecificTest,
			},
			ExhaustedKey: exhausted,
		},
	}
}

// findBuggyOutputTest returns the first buggy-output test the learner's
// outputs reproduce. A test matches when the buggy implementation agrees
// with the learner on every case outside its ignored suites and at least
// one of those shared outputs is wrong.
func (s *Service) findBuggyOutputTest(ctx context.Context, sub Submission, taskIndex int, task *domain.Task, run taskRun) (int, bool) {
	studentOutput := make(map[caseRef]any, len(run.refs))
	for j, ref := range run.refs {
		studentOutput[ref] = run.outputs[j]
	}

	// Reference implementations live in the auxiliary code only.
	reference := runner.Program{Language: sub.Language, AuxiliaryCode: sub.AuxiliaryCode}

	for bi, bt := range task.BuggyOutputTests {
		calls, refs := taskCalls(task, bt.BuggyFunctionName, func(suite *domain.TestSuite) bool {
			return !bt.IsIgnored(suite.ID)
		})
		if len(calls) == 0 {
			continue
		}

		results, err := runner.RunAll(ctx, s.exec, reference, calls)
		if err != nil || len(results) != len(calls) || lastFailed(results) {
			s.logger.Warn("buggy output function could not be evaluated",
				"function", bt.BuggyFunctionName, "task_index", taskIndex, "error", err)
			continue
		}

		matches, anyWrong := true, false
		for j, ref := range refs {
			actual := studentOutput[ref]
			if !domain.ValuesEqual(results[j].Output, actual) {
				matches = false
				break
			}
			if !task.TestSuites[ref.suite].TestCases[ref.cas].IsCorrect(actual) {
				anyWrong = true
			}
		}
		if matches && anyWrong {
			return bi, true
		}
	}
	return 0, false
}

// findSuiteLevelTest returns the first suite-level rule whose pass/fail
// conditions all hold for this submission.
func findSuiteLevelTest(task *domain.Task, run taskRun) (int, bool) {
	passes := make(map[string]bool, len(task.TestSuites))
	for _, suite := range task.TestSuites {
		passes[suite.ID] = true
	}
	for j, ref := range run.refs {
		suite := task.TestSuites[ref.suite]
		if !suite.TestCases[ref.cas].IsCorrect(run.outputs[j]) {
			passes[suite.ID] = false
		}
	}

	for si, st := range task.SuiteLevelTests {
		triggered := true
		for _, id := range st.TestSuiteIDsThatMustPass {
			if !passes[id] {
				triggered = false
			}
		}
		for _, id := range st.TestSuiteIDsThatMustFail {
			if passes[id] {
				triggered = false
			}
		}
		if triggered {
			return si, true
		}
	}
	return 0, false
}

func (s *Service) supportedLibraries(lang runner.Language) []string {
	if libs, ok := s.config.SupportedLibraries[lang]; ok {
		return libs
	}
	return runner.DefaultLanguageConfigs()[lang].SupportedLibraries
}

func stringPtr(s string) *string {
	return &s
}
