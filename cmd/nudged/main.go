package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/nudge/internal/app"
	"github.com/felixgeelhaar/nudge/internal/config"
	"github.com/felixgeelhaar/nudge/internal/daemon"
	"github.com/felixgeelhaar/nudge/internal/queue"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	pidFileName     = "nudged.pid"
	logFileName     = "nudged.log"
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	nudgeDir, err := config.EnsureNudgeDir()
	if err != nil {
		return fmt.Errorf("ensure nudge dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Validate has already checked the level
	level, _ := config.ParseLogLevel(cfg.Daemon.LogLevel)
	logFile, err := setupLogging(nudgeDir, level)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	pidPath := filepath.Join(nudgeDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer services.Close()

	serverCfg := daemon.ServerConfig{
		Config:    cfg,
		Sessions:  services.Sessions,
		Questions: services.Questions,
		Version:   Version,
		Logger:    logger,
	}
	if services.SubmissionLog != nil {
		serverCfg.Stats = services.SubmissionLog
	}
	server, err := daemon.NewServer(serverCfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	var worker *queue.Worker
	if services.Queue != nil {
		if worker, err = services.NewWorker(); err != nil {
			return err
		}
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	if worker != nil {
		g.Go(func() error {
			<-gctx.Done()
			worker.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "cause", context.Cause(gctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("daemon stopped")
	return nil
}

func setupLogging(nudgeDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(nudgeDir, "logs", logFileName)

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	slog.SetDefault(slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, opts),
			// foreground mode
			slog.NewTextHandler(os.Stderr, opts),
		},
	}))

	return logFile, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
