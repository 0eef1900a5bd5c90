// Package config loads nudge configuration from ~/.nudge/config.yaml and
// the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Environment overrides
const (
	EnvPort                           = "NUDGE_PORT"
	EnvLogLevel                       = "NUDGE_LOG_LEVEL"
	EnvRunnerExecutor                 = "NUDGE_RUNNER_EXECUTOR"
	EnvRabbitMQURL                    = "NUDGE_RABBITMQ_URL"
	EnvQuestionsPath                  = "NUDGE_QUESTIONS_PATH"
	EnvLanguageUnfamiliarityThreshold = "NUDGE_LANGUAGE_UNFAMILIARITY_THRESHOLD"
	EnvDatabasePath                   = "NUDGE_DATABASE_PATH"
)

// ApplyEnv overrides settings from environment variables. Unparseable
// numbers are ignored. Setting NUDGE_RABBITMQ_URL enables the queue worker.
func (c *LocalConfig) ApplyEnv() {
	c.Daemon.Port = getEnvInt(EnvPort, c.Daemon.Port)
	c.Daemon.LogLevel = getEnv(EnvLogLevel, c.Daemon.LogLevel)
	c.Runner.Executor = getEnv(EnvRunnerExecutor, c.Runner.Executor)
	c.Questions.Path = getEnv(EnvQuestionsPath, c.Questions.Path)
	c.Storage.Path = getEnv(EnvDatabasePath, c.Storage.Path)
	c.Evaluation.LanguageUnfamiliarityThreshold = getEnvInt(
		EnvLanguageUnfamiliarityThreshold, c.Evaluation.LanguageUnfamiliarityThreshold)

	if url := os.Getenv(EnvRabbitMQURL); url != "" {
		c.Queue.URL = url
		c.Queue.Enabled = true
	}
}

// ParseLogLevel maps a config level name to a slog level
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
