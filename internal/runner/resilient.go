package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientConfig holds configuration for the resilient executor wrapper
type ResilientConfig struct {
	// EnableCircuitBreaker stops calling an executor that keeps failing
	EnableCircuitBreaker bool

	// EnableRetry retries executor failures with backoff
	EnableRetry bool

	// EnableBulkhead limits concurrent executions
	EnableBulkhead bool

	// MaxConcurrent for bulkhead (default: 4)
	MaxConcurrent int

	// MaxAttempts for retry (default: 2)
	MaxAttempts int

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilientConfig returns sensible defaults for sandbox resilience
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		MaxConcurrent:        4,
		MaxAttempts:          2,
	}
}

// ResilientExecutor wraps an Executor with resilience patterns from fortify.
// Only executor failures count against the breaker; learner errors are
// results, not failures.
type ResilientExecutor struct {
	exec           Executor
	circuitBreaker circuitbreaker.CircuitBreaker[any]
	retrier        retry.Retry[any]
	bulkhead       bulkhead.Bulkhead[any]
	logger         *slog.Logger
}

// NewResilientExecutor wraps exec with resilience patterns using fortify
func NewResilientExecutor(exec Executor, cfg ResilientConfig) *ResilientExecutor {
	re := &ResilientExecutor{
		exec:   exec,
		logger: cfg.Logger,
	}

	if cfg.EnableCircuitBreaker {
		re.circuitBreaker = circuitbreaker.New[any](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: isHealthyExecutorResult,
			OnStateChange: func(from, to circuitbreaker.State) {
				if re.logger != nil {
					re.logger.Warn("executor circuit breaker state change",
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 2
		}
		re.retrier = retry.New[any](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryableExecutorError,
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 4
		}
		re.bulkhead = bulkhead.New[any](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 4,
			QueueTimeout:  30 * time.Second,
		})
	}

	return re
}

// isHealthyExecutorResult reports whether err leaves the sandbox healthy.
// Timeouts come from learner code and cancellations from newer submissions;
// neither may open the breaker for every other session.
func isHealthyExecutorResult(err error) bool {
	return err == nil ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnsupportedLanguage) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// isRetryableExecutorError retries infrastructure failures but never
// timeouts: a learner's infinite loop would time out again.
func isRetryableExecutorError(err error) bool {
	return errors.Is(err, ErrExecutorFailed) && !errors.Is(err, ErrTimeout)
}

func (r *ResilientExecutor) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	operation := fn

	if r.bulkhead != nil {
		operation = func(ctx context.Context) (any, error) {
			return r.bulkhead.Execute(ctx, fn)
		}
	}

	var (
		out any
		err error
	)
	switch {
	case r.circuitBreaker != nil && r.retrier != nil:
		out, err = r.circuitBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
			return r.retrier.Do(ctx, operation)
		})
	case r.circuitBreaker != nil:
		out, err = r.circuitBreaker.Execute(ctx, operation)
	case r.retrier != nil:
		out, err = r.retrier.Do(ctx, operation)
	default:
		out, err = operation(ctx)
	}

	if err != nil && !errors.Is(err, ErrExecutorFailed) && !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrUnsupportedLanguage) {
		// Breaker and bulkhead rejections
		err = fmt.Errorf("%w: %v", ErrExecutorFailed, err)
	}
	return out, err
}

func (r *ResilientExecutor) CheckPrerequisites(ctx context.Context, req PrereqRequest) (*PrereqResult, error) {
	// Static analysis does not touch the sandbox.
	return r.exec.CheckPrerequisites(ctx, req)
}

func (r *ResilientExecutor) CheckSyntax(ctx context.Context, lang Language, code string) (*SyntaxResult, error) {
	out, err := r.execute(ctx, func(ctx context.Context) (any, error) {
		return r.exec.CheckSyntax(ctx, lang, code)
	})
	if err != nil {
		return nil, err
	}
	return out.(*SyntaxResult), nil
}

func (r *ResilientExecutor) RunFunction(ctx context.Context, program Program, call Call) (*RunResult, error) {
	out, err := r.execute(ctx, func(ctx context.Context) (any, error) {
		return r.exec.RunFunction(ctx, program, call)
	})
	if err != nil {
		return nil, err
	}
	return out.(*RunResult), nil
}

func (r *ResilientExecutor) RunFunctions(ctx context.Context, program Program, calls []Call) ([]RunResult, error) {
	out, err := r.execute(ctx, func(ctx context.Context) (any, error) {
		return RunAll(ctx, r.exec, program, calls)
	})
	if err != nil {
		return nil, err
	}
	return out.([]RunResult), nil
}

var (
	_ Executor    = (*ResilientExecutor)(nil)
	_ BatchRunner = (*ResilientExecutor)(nil)
)
