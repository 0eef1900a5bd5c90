package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nudge/internal/app"
	"github.com/felixgeelhaar/nudge/internal/config"
	mcpserver "github.com/felixgeelhaar/nudge/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve nudge sessions over MCP on stdio",
	Long: `Start an MCP server on stdin/stdout so editors and assistants can start
sessions and submit code. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// stdout carries the protocol; the queue worker belongs to nudged
		cfg.Queue.Enabled = false

		level, _ := config.ParseLogLevel(cfg.Daemon.LogLevel)
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		services, err := app.New(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("build services: %w", err)
		}
		defer services.Close()

		srv := mcpserver.NewServer(mcpserver.Config{
			SessionService: services.Sessions,
			Questions:      services.Questions,
			Version:        Version,
		})
		return srv.ServeStdio(ctx)
	},
}
