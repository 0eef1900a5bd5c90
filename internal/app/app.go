// Package app builds the nudge services from configuration. The daemon, the
// MCP command and the offline checker share this wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/nudge/internal/config"
	"github.com/felixgeelhaar/nudge/internal/evaluation"
	"github.com/felixgeelhaar/nudge/internal/feedback"
	"github.com/felixgeelhaar/nudge/internal/queue"
	"github.com/felixgeelhaar/nudge/internal/question"
	"github.com/felixgeelhaar/nudge/internal/runner"
	"github.com/felixgeelhaar/nudge/internal/session"
	"github.com/felixgeelhaar/nudge/internal/storage/sqlite"
)

// App holds the wired services. Optional parts are nil when disabled.
type App struct {
	Config    *config.LocalConfig
	Questions *question.Registry
	Evaluator *evaluation.Service
	Sessions  *session.Service

	// SubmissionLog is set when storage.path is configured
	SubmissionLog *sqlite.SubmissionLog
	// Queue is set when the queue is enabled
	Queue *queue.Connection

	logger  *slog.Logger
	closers []io.Closer
}

// New wires every service described by cfg. Close releases what New opened.
func New(ctx context.Context, cfg *config.LocalConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	questions, err := NewQuestions(cfg)
	if err != nil {
		return nil, err
	}
	a.Questions = questions

	exec, closer, err := NewExecutor(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.track(closer)
	a.Evaluator = NewEvaluator(cfg, exec, logger)

	var db *sqlite.DB
	if cfg.Storage.Path != "" {
		db, err = sqlite.Open(cfg.Storage.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.track(db)
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.SubmissionLog = sqlite.NewSubmissionLog(db)
	}

	var store session.SessionStore = session.NewMemoryStore()
	if cfg.Storage.Sessions == config.SessionsSQLite {
		store = sqlite.NewSessionStore(db)
	}

	a.Sessions = session.NewService(store, questions, a.Evaluator, logger)
	if a.SubmissionLog != nil {
		a.Sessions.AddSink(a.SubmissionLog)
	}

	if cfg.Queue.Enabled {
		conn, err := queue.NewConnection(cfg.Queue.URL, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect queue: %w", err)
		}
		a.track(conn)
		a.Queue = conn
		a.Sessions.AddSink(queue.NewProducer(conn))
	}

	logger.Info("services ready",
		"questions", questions.Count(),
		"executor", cfg.Runner.Executor,
		"sessions", cfg.Storage.Sessions,
		"submission_log", a.SubmissionLog != nil,
		"queue", a.Queue != nil,
	)
	return a, nil
}

func (a *App) track(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// NewWorker returns a submission worker over the app's queue connection.
func (a *App) NewWorker() (*queue.Worker, error) {
	if a.Queue == nil {
		return nil, errors.New("queue disabled")
	}
	cfg := queue.DefaultWorkerConfig()
	cfg.Workers = a.Config.Queue.Workers
	// a job runs every test case of a question; leave room for several calls
	cfg.Timeout = max(cfg.Timeout, 6*a.Config.Runner.Timeout())
	return queue.NewWorker(a.Queue, queue.SessionHandler(a.Sessions), cfg), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewQuestions loads the configured question bank, or the built-in one.
func NewQuestions(cfg *config.LocalConfig) (*question.Registry, error) {
	loader := question.NewBuiltinLoader()
	if cfg.Questions.Path != "" {
		loader = question.NewLoader(cfg.Questions.Path)
	}
	registry := question.NewRegistry(loader)
	if err := registry.Load(); err != nil {
		return nil, err
	}
	return registry, nil
}

// NewExecutor builds the Python executor over the configured command runner.
// The returned closer is nil for the local runner.
func NewExecutor(cfg *config.LocalConfig, logger *slog.Logger) (runner.Executor, io.Closer, error) {
	var (
		cmdRunner runner.CommandRunner
		closer    io.Closer
	)
	switch cfg.Runner.Executor {
	case config.ExecutorDocker:
		docker, err := runner.NewDockerRunner(runner.DockerConfig{
			Image:      cfg.Runner.Docker.Image,
			MemoryMB:   cfg.Runner.Docker.MemoryMB,
			CPULimit:   cfg.Runner.Docker.CPULimit,
			NetworkOff: cfg.Runner.Docker.NetworkOff,
		})
		if err != nil {
			return nil, nil, err
		}
		cmdRunner, closer = docker, docker
	default:
		cmdRunner = runner.NewLocalRunner()
	}

	pyCfg := runner.DefaultPythonConfig()
	if len(cfg.Runner.Interpreter) > 0 {
		pyCfg.Interpreter = cfg.Runner.Interpreter
	}
	pyCfg.Timeout = cfg.Runner.Timeout()
	pyCfg.RecursionLimit = cfg.Runner.RecursionLimit
	if libs, ok := cfg.Evaluation.SupportedLibraries[string(runner.LanguagePython)]; ok {
		pyCfg.SupportedLibraries = libs
	}

	registry := runner.NewExecutorRegistry()
	registry.Register(runner.NewPythonExecutor(cmdRunner, pyCfg))

	var exec runner.Executor = registry
	if r := cfg.Runner.Resilience; r.Enabled {
		exec = runner.NewResilientExecutor(registry, runner.ResilientConfig{
			EnableCircuitBreaker: true,
			EnableRetry:          true,
			EnableBulkhead:       true,
			MaxConcurrent:        r.MaxConcurrent,
			MaxAttempts:          r.MaxAttempts,
			Logger:               logger,
		})
	}
	return exec, closer, nil
}

// NewEvaluator builds the feedback cascade around exec.
func NewEvaluator(cfg *config.LocalConfig, exec runner.Executor, logger *slog.Logger) *evaluation.Service {
	builderCfg := feedback.DefaultConfig()
	if len(cfg.Evaluation.SampleInputSuiteIDs) > 0 {
		builderCfg.SampleInputSuiteIDs = cfg.Evaluation.SampleInputSuiteIDs
	}

	evalCfg := evaluation.DefaultConfig()
	evalCfg.LanguageUnfamiliarityThreshold = cfg.Evaluation.LanguageUnfamiliarityThreshold
	for lang, libs := range cfg.Evaluation.SupportedLibraries {
		l, err := runner.ParseLanguage(lang)
		if err != nil {
			logger.Warn("ignoring libraries for unsupported language", "language", lang)
			continue
		}
		evalCfg.SupportedLibraries[l] = libs
	}

	return evaluation.NewService(exec, feedback.NewBuilder(builderCfg), evalCfg, logger)
}
