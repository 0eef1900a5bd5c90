package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nudge/internal/app"
	"github.com/felixgeelhaar/nudge/internal/question"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Browse the question bank",
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadQuestions(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		questions := registry.List()
		if len(questions) == 0 {
			fmt.Fprintln(out, "No questions found.")
			return nil
		}

		bold.Fprintf(out, "%-24s  %-32s  %-8s  %s\n", "ID", "Title", "Language", "Tasks")
		fmt.Fprintln(out, strings.Repeat("─", 76))
		for _, q := range questions {
			fmt.Fprintf(out, "%-24s  %-32s  %-8s  %d\n", q.ID, truncate(q.Title, 32), q.Language, len(q.Tasks))
		}
		return nil
	},
}

var questionsInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show a question's tasks and starter code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadQuestions(cmd)
		if err != nil {
			return err
		}
		q, err := registry.Get(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bold.Fprintln(out, q.Title)
		fmt.Fprintf(out, "ID:       %s\n", q.ID)
		fmt.Fprintf(out, "Language: %s\n", q.Language)

		for i, task := range q.Tasks {
			fmt.Fprintln(out)
			bold.Fprintf(out, "Task %d: %s\n", i+1, task.MainFunctionName)
			for _, line := range task.Instructions {
				fmt.Fprintf(out, "  %s\n", line)
			}
			for _, suite := range task.TestSuites {
				name := suite.HumanReadableName
				if name == "" {
					name = suite.ID
				}
				faint.Fprintf(out, "  - %s (%d cases)\n", name, len(suite.TestCases))
			}
		}

		if q.StarterCode != "" {
			fmt.Fprintln(out)
			bold.Fprintln(out, "Starter code:")
			cyan.Fprint(out, indent(q.StarterCode))
		}
		return nil
	},
}

func init() {
	questionsCmd.PersistentFlags().String("path", "", "Question directory (overrides questions.path)")
	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsInfoCmd)
}

func loadQuestions(cmd *cobra.Command) (*question.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		cfg.Questions.Path = p
	}
	return app.NewQuestions(cfg)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
