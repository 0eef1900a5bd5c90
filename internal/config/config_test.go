package config

import (
	"log/slog"
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "NUDGE_TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "NUDGE_TEST_KEY_SET", "default", "custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns default when not set", "NUDGE_TEST_INT_UNSET", 100, "", 100},
		{"parses valid int", "NUDGE_TEST_INT_VALID", 100, "42", 42},
		{"returns default on invalid int", "NUDGE_TEST_INT_INVALID", 100, "not-a-number", 100},
		{"parses zero", "NUDGE_TEST_INT_ZERO", 100, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvRunnerExecutor, "docker")
	t.Setenv(EnvQuestionsPath, "/srv/questions")
	t.Setenv(EnvLanguageUnfamiliarityThreshold, "3")
	t.Setenv(EnvRabbitMQURL, "amqp://rabbit:5672/")
	t.Setenv(EnvDatabasePath, "/var/lib/nudge.db")

	cfg := DefaultLocalConfig()
	cfg.ApplyEnv()

	if cfg.Daemon.Port != 9000 || cfg.Daemon.LogLevel != "debug" {
		t.Errorf("Daemon = %+v", cfg.Daemon)
	}
	if cfg.Runner.Executor != ExecutorDocker {
		t.Errorf("Runner.Executor = %q, want docker", cfg.Runner.Executor)
	}
	if cfg.Questions.Path != "/srv/questions" {
		t.Errorf("Questions.Path = %q", cfg.Questions.Path)
	}
	if cfg.Evaluation.LanguageUnfamiliarityThreshold != 3 {
		t.Errorf("threshold = %d, want 3", cfg.Evaluation.LanguageUnfamiliarityThreshold)
	}
	if !cfg.Queue.Enabled || cfg.Queue.URL != "amqp://rabbit:5672/" {
		t.Errorf("Queue = %+v", cfg.Queue)
	}
	if cfg.Storage.Path != "/var/lib/nudge.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestApplyEnv_NoOverrides(t *testing.T) {
	cfg := DefaultLocalConfig()
	cfg.ApplyEnv()

	if cfg.Queue.Enabled {
		t.Error("queue should stay disabled without NUDGE_RABBITMQ_URL")
	}
	if cfg.Daemon.Port != DefaultLocalConfig().Daemon.Port {
		t.Errorf("Port = %d", cfg.Daemon.Port)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}
