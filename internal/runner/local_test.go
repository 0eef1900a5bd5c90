package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func skipIfNoShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping local runner tests")
	}
}

func TestLocalRunner_Run(t *testing.T) {
	skipIfNoShell(t)

	r := NewLocalRunner()
	ctx := context.Background()

	tests := []struct {
		name       string
		files      map[string]string
		cmd        []string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "reads written files",
			files:      map[string]string{"input.txt": "hello"},
			cmd:        []string{"sh", "-c", "cat input.txt"},
			wantStdout: "hello",
		},
		{
			name:       "nested files",
			files:      map[string]string{"pkg/data.txt": "nested"},
			cmd:        []string{"sh", "-c", "cat pkg/data.txt"},
			wantStdout: "nested",
		},
		{
			name:       "non-zero exit is a result",
			cmd:        []string{"sh", "-c", "echo oops >&2; exit 3"},
			wantExit:   3,
			wantStderr: "oops\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Run(ctx, tt.files, tt.cmd, 10*time.Second)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.ExitCode != tt.wantExit {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.wantExit)
			}
			if res.Stdout != tt.wantStdout {
				t.Errorf("Stdout = %q, want %q", res.Stdout, tt.wantStdout)
			}
			if res.Stderr != tt.wantStderr {
				t.Errorf("Stderr = %q, want %q", res.Stderr, tt.wantStderr)
			}
			if res.Duration == 0 {
				t.Error("Duration should be set")
			}
		})
	}
}

func TestLocalRunner_Timeout(t *testing.T) {
	skipIfNoShell(t)

	_, err := NewLocalRunner().Run(context.Background(), nil, []string{"sh", "-c", "sleep 5"}, 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Run() error = %v, want ErrTimeout", err)
	}
}

func TestLocalRunner_Errors(t *testing.T) {
	r := NewLocalRunner()
	ctx := context.Background()

	if _, err := r.Run(ctx, nil, nil, time.Second); !errors.Is(err, ErrExecutorFailed) {
		t.Errorf("empty command error = %v, want ErrExecutorFailed", err)
	}

	_, err := r.Run(ctx, nil, []string{"nudge-no-such-binary"}, time.Second)
	if !errors.Is(err, ErrExecutorFailed) {
		t.Errorf("missing binary error = %v, want ErrExecutorFailed", err)
	}
	if err != nil && !strings.Contains(err.Error(), "nudge-no-such-binary") {
		t.Errorf("error should name the binary: %v", err)
	}
}
