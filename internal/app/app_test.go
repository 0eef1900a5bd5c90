package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nudge/internal/config"
	"github.com/felixgeelhaar/nudge/internal/runner"
	"github.com/felixgeelhaar/nudge/internal/session"
	"github.com/felixgeelhaar/nudge/internal/storage/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Defaults(t *testing.T) {
	cfg := config.DefaultLocalConfig()

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Positive(t, a.Questions.Count())
	assert.NotNil(t, a.Evaluator)
	assert.NotNil(t, a.Sessions)
	assert.Nil(t, a.SubmissionLog)
	assert.Nil(t, a.Queue)

	_, err = a.NewWorker()
	assert.Error(t, err)
}

func TestNew_SQLiteStorage(t *testing.T) {
	cfg := config.DefaultLocalConfig()
	cfg.Storage.Path = sqlite.MemoryPath
	cfg.Storage.Sessions = config.SessionsSQLite

	ctx := context.Background()
	a, err := New(ctx, cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NotNil(t, a.SubmissionLog)

	sess, err := a.Sessions.Create(ctx, session.CreateRequest{QuestionID: "reverse-words"})
	require.NoError(t, err)

	got, err := a.Sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "reverse-words", got.QuestionID)

	stats, err := a.SubmissionLog.Stats(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestNewQuestions_MissingDirectory(t *testing.T) {
	cfg := config.DefaultLocalConfig()
	cfg.Questions.Path = t.TempDir() + "/missing"

	_, err := NewQuestions(cfg)
	assert.Error(t, err)
}

func TestNewExecutor_Local(t *testing.T) {
	cfg := config.DefaultLocalConfig()

	exec, closer, err := NewExecutor(cfg, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &runner.ResilientExecutor{}, exec)

	cfg.Runner.Resilience.Enabled = false
	exec, _, err = NewExecutor(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &runner.ExecutorRegistry{}, exec)
}

func TestNewEvaluator_Threshold(t *testing.T) {
	cfg := config.DefaultLocalConfig()
	cfg.Evaluation.LanguageUnfamiliarityThreshold = 3
	cfg.Evaluation.SupportedLibraries = map[string][]string{
		"python": {"math"},
		"cobol":  {"io"},
	}

	exec, _, err := NewExecutor(cfg, discardLogger())
	require.NoError(t, err)

	svc := NewEvaluator(cfg, exec, discardLogger())
	assert.Equal(t, 3, svc.Threshold())
}
