package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nudge/internal/config"
)

const (
	daemonBinary = "nudged"
	pidFileName  = "nudged.pid"
	logFileName  = "nudged.log"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nudge daemon in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		addr, err := daemonAddr(cmd)
		if err != nil {
			return err
		}
		if isRunning(addr) {
			green.Fprintln(out, "✓ Daemon is already running")
			return nil
		}

		nudgeDir, err := config.EnsureNudgeDir()
		if err != nil {
			return fmt.Errorf("setup nudge directory: %w", err)
		}

		path, err := findDaemonBinary()
		if err != nil {
			return fmt.Errorf("find daemon binary: %w", err)
		}

		proc := exec.Command(path)
		proc.Dir = nudgeDir
		configureDaemonProcess(proc)
		if err := proc.Start(); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}

		fmt.Fprint(out, "Starting daemon...")
		for i := 0; i < 30; i++ {
			time.Sleep(100 * time.Millisecond)
			if isRunning(addr) {
				green.Fprintln(out, " ✓")
				fmt.Fprintf(out, "Daemon running at %s\n", addr)
				return nil
			}
			fmt.Fprint(out, ".")
		}

		red.Fprintln(out, " ✗")
		return fmt.Errorf("daemon failed to start (check logs with 'nudge logs')")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the nudge daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		addr, err := daemonAddr(cmd)
		if err != nil {
			return err
		}
		if !isRunning(addr) {
			fmt.Fprintln(out, "Daemon is not running")
			return nil
		}

		nudgeDir, err := config.NudgeDir()
		if err != nil {
			return err
		}
		pid, err := readPID(filepath.Join(nudgeDir, pidFileName))
		if err != nil {
			return err
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("find process: %w", err)
		}

		fmt.Fprint(out, "Stopping daemon...")
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("send signal: %w", err)
		}

		for i := 0; i < 50; i++ {
			time.Sleep(100 * time.Millisecond)
			if !isRunning(addr) {
				green.Fprintln(out, " ✓")
				return nil
			}
			fmt.Fprint(out, ".")
		}

		red.Fprintln(out, " ✗")
		return fmt.Errorf("daemon did not stop gracefully")
	},
}

// daemonStatus is the subset of /v1/status shown by the CLI
type daemonStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Runner        string `json:"runner"`
	Questions     int    `json:"questions"`
	Sessions      int    `json:"sessions"`
	QueueEnabled  bool   `json:"queue_enabled"`
	StatsEnabled  bool   `json:"stats_enabled"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		addr, err := daemonAddr(cmd)
		if err != nil {
			return err
		}
		if !isRunning(addr) {
			fmt.Fprintln(out, "Status: stopped")
			return nil
		}

		status, err := fetchStatus(addr)
		if err != nil {
			return err
		}
		printStatus(out, addr, status)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		nudgeDir, err := config.NudgeDir()
		if err != nil {
			return err
		}
		return tailLog(cmd.OutOrStdout(), filepath.Join(nudgeDir, "logs", logFileName), 4096)
	},
}

func daemonAddr(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", cfg.Daemon.Bind, cfg.Daemon.Port), nil
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(addr string) bool {
	client := http.Client{Timeout: time.Second}
	resp, err := client.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func fetchStatus(addr string) (*daemonStatus, error) {
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/v1/status")
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get status: unexpected status %d", resp.StatusCode)
	}

	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

func printStatus(w io.Writer, addr string, s *daemonStatus) {
	fmt.Fprintf(w, "Status:    %s\n", s.Status)
	fmt.Fprintf(w, "Version:   %s\n", s.Version)
	fmt.Fprintf(w, "Uptime:    %s\n", time.Duration(s.UptimeSeconds)*time.Second)
	fmt.Fprintf(w, "Runner:    %s\n", s.Runner)
	fmt.Fprintf(w, "Questions: %d\n", s.Questions)
	fmt.Fprintf(w, "Sessions:  %d\n", s.Sessions)
	fmt.Fprintf(w, "Queue:     %s\n", onOff(s.QueueEnabled))
	fmt.Fprintf(w, "Stats:     %s\n", onOff(s.StatsEnabled))
	fmt.Fprintf(w, "Address:   %s\n", addr)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID: %w", err)
	}
	return pid, nil
}

// tailLog prints the complete lines within the last n bytes of the log.
func tailLog(w io.Writer, path string, n int64) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		fmt.Fprintln(w, "No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := max(info.Size()-n, 0)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	// skip the partial first line
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the nudged binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	// next to this binary
	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s binary not found (build with 'go build ./cmd/nudged')", daemonBinary)
}
