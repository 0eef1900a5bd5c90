package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/storage/sqlite"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show submission statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		questionID, _ := cmd.Flags().GetString("question")

		log, closeDB, err := openSubmissionLog(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		stats, err := log.Stats(cmd.Context(), questionID)
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var statsRecentCmd = &cobra.Command{
	Use:   "recent <session-id>",
	Short: "List the latest submissions of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		log, closeDB, err := openSubmissionLog(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		records, err := log.Recent(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No submissions found.")
			return nil
		}

		bold.Fprintf(out, "%-7s  %-19s  %-20s  %-5s  %-5s  %s\n", "Attempt", "Time", "Category", "Task", "Hint", "Ms")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		for _, r := range records {
			task := "-"
			if r.Key.TaskIndex >= 0 {
				task = fmt.Sprint(r.Key.TaskIndex + 1)
			}
			line := fmt.Sprintf("%-7d  %-19s  %-20s  %-5s  %-5d  %d\n",
				r.Attempt,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Key.Category,
				task,
				r.MessageIndex+1,
				r.Duration.Milliseconds(),
			)
			if r.IsCorrect {
				green.Fprint(out, line)
			} else {
				fmt.Fprint(out, line)
			}
		}
		return nil
	},
}

var statsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return errors.New("--older-than must be positive")
		}

		log, closeDB, err := openSubmissionLog(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := log.Prune(cmd.Context(), olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d submissions\n", n)
		return nil
	},
}

func init() {
	statsCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides storage.path)")
	statsCmd.Flags().String("question", "", "Only count submissions to this question")
	statsRecentCmd.Flags().Int("limit", 20, "Maximum number of submissions to list")
	statsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete submissions older than this")

	statsCmd.AddCommand(statsRecentCmd)
	statsCmd.AddCommand(statsPruneCmd)
}

// openSubmissionLog opens the database named by --db or storage.path.
func openSubmissionLog(cmd *cobra.Command) (*sqlite.SubmissionLog, func(), error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Storage.Path
	}
	if path == "" {
		return nil, nil, errors.New("no database configured (set storage.path or pass --db)")
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return sqlite.NewSubmissionLog(db), func() { db.Close() }, nil
}

func printStats(w io.Writer, stats *sqlite.Stats) {
	title := "All questions"
	if stats.QuestionID != "" {
		title = "Question " + stats.QuestionID
	}
	bold.Fprintln(w, title)
	fmt.Fprintf(w, "  Submissions:      %d\n", stats.Total)
	fmt.Fprintf(w, "  Sessions:         %d\n", stats.Sessions)
	fmt.Fprintf(w, "  Correct:          %d\n", stats.Correct)
	fmt.Fprintf(w, "  Language prompts: %d\n", stats.LanguagePrompts)
	if stats.Total == 0 {
		return
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "By category")
	categories := make([]string, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categoryRank(categories[i]) < categoryRank(categories[j])
	})
	for _, c := range categories {
		n := stats.ByCategory[c]
		fmt.Fprintf(w, "  %-20s %5d  %s\n", c, n, renderBar(float64(n)/float64(stats.Total), 20))
	}
}

// categoryRank orders categories by cascade precedence; unknown ones last.
func categoryRank(c string) int {
	for i, known := range domain.AllCategories {
		if string(known) == c {
			return i
		}
	}
	return len(domain.AllCategories)
}

// renderBar creates a visual progress bar
func renderBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
