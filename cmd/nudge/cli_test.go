package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/learner"
	"github.com/felixgeelhaar/nudge/internal/storage/sqlite"
)

// execute runs the root command with a config file that does not exist,
// so every command sees the defaults.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	noColor(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "nudge dev\n", out)
}

func TestQuestionsCommands(t *testing.T) {
	out, err := execute(t, "questions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "reverse-words")
	assert.Contains(t, out, "running-total")

	out, err = execute(t, "questions", "info", "reverse-words")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1:")
	assert.Contains(t, out, "Starter code:")

	_, err = execute(t, "questions", "info", "missing")
	assert.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestStatsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nudge.db")

	out, err := execute(t, "stats", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "All questions")
	assert.Contains(t, out, "Submissions:      0")

	out, err = execute(t, "stats", "recent", "s1", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No submissions found.")
}

func TestCheckCommand_MissingQuestion(t *testing.T) {
	_, err := execute(t, "check", filepath.Join(t.TempDir(), "q.yaml"), "solution.py")
	assert.Error(t, err)
}

func TestPrintStats(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	printStats(&buf, &sqlite.Stats{
		QuestionID: "echo",
		Total:      4,
		Correct:    1,
		Sessions:   2,
		ByCategory: map[string]int{
			string(domain.CategorySuccess):     1,
			string(domain.CategorySyntaxError): 3,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Question echo")
	syntax := strings.Index(out, "SYNTAX_ERROR")
	success := strings.Index(out, "SUCCESS")
	require.True(t, syntax >= 0 && success >= 0, out)
	assert.Less(t, syntax, success, "categories follow cascade order")
	assert.Contains(t, out, renderBar(0.75, 20))
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "██░░", renderBar(0.5, 4))
	assert.Equal(t, "████", renderBar(1.5, 4))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestCheckState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	state, err := loadState(path, "echo")
	require.NoError(t, err)
	assert.Equal(t, learner.NewState(), state)

	state.RecordRawCode("print(1)")
	state.RecordSyntaxError()
	require.NoError(t, saveState(path, "echo", state))

	loaded, err := loadState(path, "echo")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	other, err := loadState(path, "running-total")
	require.NoError(t, err)
	assert.Equal(t, learner.NewState(), other)

	disabled, err := loadState("", "echo")
	require.NoError(t, err)
	assert.Equal(t, learner.NewState(), disabled)
	assert.NoError(t, saveState("", "echo", state))

	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = loadState(path, "echo")
	assert.Error(t, err)
}

func TestTailLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nudged.log")
	require.NoError(t, os.WriteFile(path, []byte("first line\nsecond\nthird\n"), 0644))

	var buf bytes.Buffer
	require.NoError(t, tailLog(&buf, path, 12))
	assert.Equal(t, "third\n", buf.String())

	buf.Reset()
	require.NoError(t, tailLog(&buf, path, 4096))
	assert.Equal(t, "first line\nsecond\nthird\n", buf.String())

	buf.Reset()
	require.NoError(t, tailLog(&buf, filepath.Join(t.TempDir(), "missing.log"), 4096))
	assert.Contains(t, buf.String(), "No log file found")
}

func TestReadPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), pidFileName)
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0644))

	pid, err := readPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, os.WriteFile(path, []byte("nope"), 0644))
	_, err = readPID(path)
	assert.Error(t, err)
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/health":
			w.WriteHeader(http.StatusOK)
		case "/v1/status":
			json.NewEncoder(w).Encode(map[string]any{
				"status":         "running",
				"version":        "1.2.3",
				"uptime_seconds": 90,
				"runner":         "local",
				"questions":      2,
				"sessions":       1,
				"queue_enabled":  true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	require.True(t, isRunning(srv.URL))

	status, err := fetchStatus(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", status.Version)
	assert.True(t, status.QueueEnabled)

	var buf bytes.Buffer
	printStatus(&buf, srv.URL, status)
	assert.Contains(t, buf.String(), "Uptime:    1m30s")
	assert.Contains(t, buf.String(), "Queue:     on")
	assert.Contains(t, buf.String(), "Stats:     off")
}

func TestIsRunning_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.False(t, isRunning(url))
}
