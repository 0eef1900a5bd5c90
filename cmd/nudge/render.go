package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// printResult renders one submission result for the terminal.
func printResult(w io.Writer, result *domain.SubmissionResult) {
	key := result.Details.Key
	if result.Feedback.IsAnswerCorrect {
		green.Fprintln(w, "✓ Correct")
	} else {
		header := "✗ " + categoryLabel(key.Category)
		if key.TaskIndex >= 0 {
			header += fmt.Sprintf(" (task %d)", key.TaskIndex+1)
		}
		red.Fprintln(w, header)
	}

	for _, p := range result.Feedback.Paragraphs {
		fmt.Fprintln(w)
		switch p.Kind {
		case domain.ParagraphCode:
			cyan.Fprint(w, indent(p.Content))
		case domain.ParagraphOutput:
			faint.Fprint(w, indent(p.Content))
		default:
			fmt.Fprintln(w, p.Content)
		}
	}

	if line := result.Feedback.ErrorLineNumber; line != nil {
		fmt.Fprintln(w)
		yellow.Fprintf(w, "Error on line %d\n", *line)
	}

	if result.Stdout != nil && *result.Stdout != "" {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Your code printed:")
		faint.Fprint(w, indent(*result.Stdout))
	}
}

func categoryLabel(c domain.FeedbackCategory) string {
	switch c {
	case domain.CategoryPrereqFailure:
		return "Not allowed"
	case domain.CategorySyntaxError:
		return "Syntax error"
	case domain.CategoryRuntimeError:
		return "Runtime error"
	case domain.CategoryCorrectnessFailure:
		return "Wrong answer"
	case domain.CategoryKnownBugFailure:
		return "Known bug"
	case domain.CategorySuiteLevelFailure:
		return "Some cases fail"
	default:
		return string(c)
	}
}

// indent prefixes every line with four spaces and ends with a newline.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
