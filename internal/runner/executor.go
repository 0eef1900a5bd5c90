package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

var (
	ErrUnsupportedLanguage = domain.ErrUnsupportedLanguage
	ErrExecutorFailed      = errors.New("executor failed")
	ErrTimeout             = errors.New("execution timed out")
)

// Executor runs learner code. Implementations report learner mistakes in
// their results; a returned error means the executor itself failed.
type Executor interface {
	// CheckPrerequisites inspects code without running it
	CheckPrerequisites(ctx context.Context, req PrereqRequest) (*PrereqResult, error)

	// CheckSyntax parses code without running it
	CheckSyntax(ctx context.Context, lang Language, code string) (*SyntaxResult, error)

	// RunFunction calls one function of program with one input
	RunFunction(ctx context.Context, program Program, call Call) (*RunResult, error)
}

// BatchRunner is implemented by executors that can run several calls
// against one loaded program, in order, sharing its state. Execution stops
// after the first call that raises or overflows the stack, so the result
// may be shorter than calls.
type BatchRunner interface {
	RunFunctions(ctx context.Context, program Program, calls []Call) ([]RunResult, error)
}

// Program is the code loaded for a run: the learner's code and the
// question's auxiliary code holding reference and buggy implementations.
type Program struct {
	Language      Language
	StudentCode   string
	AuxiliaryCode string
}

// Call describes one function invocation. Functions are resolved in the
// learner's code first, then in the auxiliary code.
type Call struct {
	Function       string `json:"function"`
	InputFunction  string `json:"input_function,omitempty"`
	OutputFunction string `json:"output_function,omitempty"`
	Input          any    `json:"input"`
}

// RunResult is the outcome of a single call.
type RunResult struct {
	Output        any           `json:"output"`
	Stdout        string        `json:"stdout"`
	Error         *RuntimeError `json:"error,omitempty"`
	StackOverflow bool          `json:"stack_overflow"`
}

// Failed reports whether the call did not return normally.
func (r *RunResult) Failed() bool {
	return r.Error != nil || r.StackOverflow
}

// RuntimeError is an exception raised by learner code.
type RuntimeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// Name is the undeclared identifier for name errors
	Name string `json:"name,omitempty"`
	Line int    `json:"line,omitempty"`
}

// String renders the error as the interpreter would print it.
func (e *RuntimeError) String() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// SyntaxResult is the outcome of parsing code.
type SyntaxResult struct {
	Valid           bool
	ErrorType       string
	ErrorMessage    string
	ErrorLineNumber int
}

// String renders the error with its category prefix.
func (r *SyntaxResult) String() string {
	if r.Valid {
		return ""
	}
	typ := r.ErrorType
	if typ == "" {
		typ = "SyntaxError"
	}
	if r.ErrorLineNumber > 0 {
		return fmt.Sprintf("%s: %s on line %d", typ, r.ErrorMessage, r.ErrorLineNumber)
	}
	return fmt.Sprintf("%s: %s", typ, r.ErrorMessage)
}

// PrereqRequest asks whether code is fit to be evaluated.
type PrereqRequest struct {
	Language           Language
	Code               string
	StarterCode        string
	SupportedLibraries []string
}

// PrereqResult reports the problems found before running code.
type PrereqResult struct {
	MissingFunctions  []string
	DisallowedImports []string
	HasGlobalCode     bool
	GlobalCodeLine    int
	WrongLanguage     *WrongLanguageConstruct
}

// OK reports whether no prerequisite was violated.
func (r *PrereqResult) OK() bool {
	return len(r.MissingFunctions) == 0 &&
		len(r.DisallowedImports) == 0 &&
		!r.HasGlobalCode &&
		r.WrongLanguage == nil
}

// WrongLanguageConstruct is a construct from another language found in the code.
type WrongLanguageConstruct struct {
	Name       string
	Message    string
	LineNumber int
	Line       string
}

// RunAll runs calls in order. It uses a single batch when exec supports it
// and otherwise stops after the first failing call.
func RunAll(ctx context.Context, exec Executor, program Program, calls []Call) ([]RunResult, error) {
	if b, ok := exec.(BatchRunner); ok {
		return b.RunFunctions(ctx, program, calls)
	}
	results := make([]RunResult, 0, len(calls))
	for _, call := range calls {
		res, err := exec.RunFunction(ctx, program, call)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
		if res.Failed() {
			break
		}
	}
	return results, nil
}

// ExecResult is the raw outcome of running a command.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// CommandRunner runs a command in a directory populated with files.
type CommandRunner interface {
	Run(ctx context.Context, files map[string]string, cmd []string, timeout time.Duration) (*ExecResult, error)
}

// Helper functions
func createTempCodeDir(code map[string]string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "nudge-run-*")
	if err != nil {
		return "", err
	}

	for filename, content := range code {
		filePath := filepath.Join(tmpDir, filename)
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			os.RemoveAll(tmpDir)
			return "", err
		}
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			os.RemoveAll(tmpDir)
			return "", err
		}
	}

	return tmpDir, nil
}

func removeTempDir(dir string) {
	os.RemoveAll(dir)
}
