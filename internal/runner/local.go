package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// LocalRunner runs commands as subprocesses on the host (for development).
type LocalRunner struct{}

// NewLocalRunner creates a new local runner
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

func (r *LocalRunner) Run(ctx context.Context, files map[string]string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrExecutorFailed)
	}

	tmpDir, err := createTempCodeDir(files)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer removeTempDir(tmpDir)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(runCtx, cmd[0], cmd[1:]...)
	c.Dir = tmpDir
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err = c.Run()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%w: %v", ErrExecutorFailed, err)
	}

	return &ExecResult{
		ExitCode: c.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

var _ CommandRunner = (*LocalRunner)(nil)
