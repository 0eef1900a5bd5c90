package runner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

//go:embed harness.py
var pythonHarness string

const (
	harnessFile = "harness.py"
	requestFile = "request.json"
)

// PythonConfig configures the Python executor
type PythonConfig struct {
	Interpreter        []string
	Timeout            time.Duration
	RecursionLimit     int
	SupportedLibraries []string
}

// DefaultPythonConfig returns sensible defaults
func DefaultPythonConfig() PythonConfig {
	return PythonConfig{
		Interpreter:        DefaultLanguageConfigs()[LanguagePython].Interpreter,
		Timeout:            10 * time.Second,
		RecursionLimit:     1000,
		SupportedLibraries: DefaultSupportedPythonLibraries,
	}
}

// PythonExecutor handles Python code. Prerequisites are checked in-process
// on the syntax tree; syntax checks and calls go through a harness script
// run by a CommandRunner.
type PythonExecutor struct {
	runner   CommandRunner
	analyzer *PythonAnalyzer
	config   PythonConfig
}

// NewPythonExecutor creates a new Python executor
func NewPythonExecutor(runner CommandRunner, cfg PythonConfig) *PythonExecutor {
	if len(cfg.Interpreter) == 0 {
		cfg.Interpreter = []string{"python3"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = 1000
	}
	return &PythonExecutor{
		runner:   runner,
		analyzer: NewPythonAnalyzer(),
		config:   cfg,
	}
}

// Language returns the language this executor handles
func (e *PythonExecutor) Language() Language {
	return LanguagePython
}

func (e *PythonExecutor) CheckPrerequisites(ctx context.Context, req PrereqRequest) (*PrereqResult, error) {
	libs := req.SupportedLibraries
	if libs == nil {
		libs = e.config.SupportedLibraries
	}
	return e.analyzer.Check(ctx, req.Code, req.StarterCode, libs)
}

type harnessRequest struct {
	Mode           string `json:"mode"`
	Student        string `json:"student"`
	Auxiliary      string `json:"auxiliary,omitempty"`
	Calls          []Call `json:"calls,omitempty"`
	RecursionLimit int    `json:"recursion_limit,omitempty"`
}

type syntaxResponse struct {
	Valid        bool   `json:"valid"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	Line         int    `json:"line"`
}

type runResponse struct {
	Results []RunResult `json:"results"`
}

func (e *PythonExecutor) CheckSyntax(ctx context.Context, lang Language, code string) (*SyntaxResult, error) {
	var resp syntaxResponse
	if err := e.invoke(ctx, harnessRequest{Mode: "syntax", Student: code}, &resp); err != nil {
		return nil, err
	}
	return &SyntaxResult{
		Valid:           resp.Valid,
		ErrorType:       resp.ErrorType,
		ErrorMessage:    resp.ErrorMessage,
		ErrorLineNumber: resp.Line,
	}, nil
}

func (e *PythonExecutor) RunFunction(ctx context.Context, program Program, call Call) (*RunResult, error) {
	results, err := e.RunFunctions(ctx, program, []Call{call})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: harness returned no result", ErrExecutorFailed)
	}
	return &results[0], nil
}

// RunFunctions runs all calls in one interpreter so they share module state.
func (e *PythonExecutor) RunFunctions(ctx context.Context, program Program, calls []Call) ([]RunResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	req := harnessRequest{
		Mode:           "run",
		Student:        program.StudentCode,
		Auxiliary:      program.AuxiliaryCode,
		Calls:          calls,
		RecursionLimit: e.config.RecursionLimit,
	}
	var resp runResponse
	if err := e.invoke(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (e *PythonExecutor) invoke(ctx context.Context, req harnessRequest, out any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode harness request: %w", err)
	}

	files := map[string]string{
		harnessFile: pythonHarness,
		requestFile: string(payload),
	}
	cmd := append(append([]string{}, e.config.Interpreter...), harnessFile, requestFile)

	res, err := e.runner.Run(ctx, files, cmd, e.config.Timeout)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: harness exited with %d: %s", ErrExecutorFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	if err := json.Unmarshal([]byte(res.Stdout), out); err != nil {
		return fmt.Errorf("%w: decode harness response: %v", ErrExecutorFailed, err)
	}
	return nil
}

// Ensure PythonExecutor implements the executor interfaces
var (
	_ LanguageExecutor = (*PythonExecutor)(nil)
	_ BatchRunner      = (*PythonExecutor)(nil)
)
