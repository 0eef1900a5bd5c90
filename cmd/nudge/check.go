package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nudge/internal/app"
	"github.com/felixgeelhaar/nudge/internal/evaluation"
	"github.com/felixgeelhaar/nudge/internal/learner"
	"github.com/felixgeelhaar/nudge/internal/question"
	"github.com/felixgeelhaar/nudge/internal/runner"
)

var checkCmd = &cobra.Command{
	Use:   "check <question.yaml> <solution.py>",
	Short: "Evaluate a solution without the daemon",
	Long: `Run the feedback cascade once on a local question file and solution.

Hint progress is kept between runs in a state file, so checking the same
mistake twice moves on to the next hint.

Examples:
  nudge check reverse-words.yaml solution.py
  nudge check --json --state .nudge-state.json q.yaml solution.py`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("state", ".nudge-state.json", "File keeping hint progress between checks (empty to disable)")
	checkCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	statePath, _ := cmd.Flags().GetString("state")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	q, err := question.ParseFile(args[0])
	if err != nil {
		return err
	}
	lang, err := runner.ParseLanguage(q.Language)
	if err != nil {
		return err
	}
	code, err := os.ReadFile(filepath.Clean(args[1]))
	if err != nil {
		return fmt.Errorf("read solution: %w", err)
	}

	state, err := loadState(statePath, q.ID)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	exec, closer, err := app.NewExecutor(cfg, logger)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := app.NewEvaluator(cfg, exec, logger).ProcessSolution(ctx, evaluation.Submission{
		Tasks:         q.Tasks,
		StarterCode:   q.StarterCode,
		StudentCode:   string(code),
		AuxiliaryCode: q.AuxiliaryCode,
		Language:      lang,
	}, state)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	if err := saveState(statePath, q.ID, state); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

// checkState is the on-disk hint progress of one question
type checkState struct {
	QuestionID string         `json:"question_id"`
	State      *learner.State `json:"state"`
}

// loadState reads the state file. A missing file, an empty path or a file
// for another question yields a fresh state.
func loadState(path, questionID string) (*learner.State, error) {
	if path == "" {
		return learner.NewState(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return learner.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var saved checkState
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	if saved.QuestionID != questionID || saved.State == nil {
		return learner.NewState(), nil
	}
	return saved.State, nil
}

func saveState(path, questionID string, state *learner.State) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(checkState{QuestionID: questionID, State: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
