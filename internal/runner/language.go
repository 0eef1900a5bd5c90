package runner

import (
	"context"
	"fmt"
	"sort"
)

// Language represents a supported programming language
type Language string

const (
	LanguagePython Language = "python"
)

// IsValid checks if the language is supported
func (l Language) IsValid() bool {
	switch l {
	case LanguagePython:
		return true
	default:
		return false
	}
}

// String returns the language as a string
func (l Language) String() string {
	return string(l)
}

// ParseLanguage converts a string to a Language
func ParseLanguage(s string) (Language, error) {
	lang := Language(s)
	if !lang.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, s)
	}
	return lang, nil
}

// LanguageConfig contains language-specific configuration
type LanguageConfig struct {
	DockerImage        string
	Interpreter        []string
	FileExtension      string
	SupportedLibraries []string
}

// DefaultSupportedPythonLibraries lists the modules learners may import.
var DefaultSupportedPythonLibraries = []string{
	"collections", "image", "math", "operator", "re", "string", "time",
}

// DefaultLanguageConfigs returns default configurations for all supported languages
func DefaultLanguageConfigs() map[Language]LanguageConfig {
	return map[Language]LanguageConfig{
		LanguagePython: {
			DockerImage:        "python:3.12-alpine",
			Interpreter:        []string{"python3"},
			FileExtension:      ".py",
			SupportedLibraries: DefaultSupportedPythonLibraries,
		},
	}
}

// LanguageExecutor is an Executor bound to one language
type LanguageExecutor interface {
	Executor

	// Language returns the language this executor handles
	Language() Language
}

// ExecutorRegistry manages language executors. It implements Executor by
// dispatching each request on its language.
type ExecutorRegistry struct {
	executors map[Language]LanguageExecutor
	configs   map[Language]LanguageConfig
}

// NewExecutorRegistry creates a new executor registry
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{
		executors: make(map[Language]LanguageExecutor),
		configs:   DefaultLanguageConfigs(),
	}
}

// Register adds an executor to the registry
func (r *ExecutorRegistry) Register(exec LanguageExecutor) {
	r.executors[exec.Language()] = exec
}

// Get returns the executor for a language
func (r *ExecutorRegistry) Get(lang Language) (LanguageExecutor, error) {
	exec, ok := r.executors[lang]
	if !ok {
		return nil, fmt.Errorf("%w: no executor registered for %s", ErrUnsupportedLanguage, lang)
	}
	return exec, nil
}

// Config returns the configuration for a language
func (r *ExecutorRegistry) Config(lang Language) (LanguageConfig, bool) {
	cfg, ok := r.configs[lang]
	return cfg, ok
}

// SupportedLanguages returns all languages with registered executors
func (r *ExecutorRegistry) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(r.executors))
	for lang := range r.executors {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

func (r *ExecutorRegistry) CheckPrerequisites(ctx context.Context, req PrereqRequest) (*PrereqResult, error) {
	exec, err := r.Get(req.Language)
	if err != nil {
		return nil, err
	}
	return exec.CheckPrerequisites(ctx, req)
}

func (r *ExecutorRegistry) CheckSyntax(ctx context.Context, lang Language, code string) (*SyntaxResult, error) {
	exec, err := r.Get(lang)
	if err != nil {
		return nil, err
	}
	return exec.CheckSyntax(ctx, lang, code)
}

func (r *ExecutorRegistry) RunFunction(ctx context.Context, program Program, call Call) (*RunResult, error) {
	exec, err := r.Get(program.Language)
	if err != nil {
		return nil, err
	}
	return exec.RunFunction(ctx, program, call)
}

// RunFunctions runs calls on the language's executor, in one batch when supported.
func (r *ExecutorRegistry) RunFunctions(ctx context.Context, program Program, calls []Call) ([]RunResult, error) {
	exec, err := r.Get(program.Language)
	if err != nil {
		return nil, err
	}
	return RunAll(ctx, exec, program, calls)
}

var (
	_ Executor    = (*ExecutorRegistry)(nil)
	_ BatchRunner = (*ExecutorRegistry)(nil)
)
