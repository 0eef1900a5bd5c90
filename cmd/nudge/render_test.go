package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPrintResult_Correct(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	printResult(&buf, &domain.SubmissionResult{
		Feedback: domain.Feedback{
			Paragraphs:      []domain.Paragraph{domain.TextParagraph("Great job!")},
			IsAnswerCorrect: true,
		},
		Details: domain.FeedbackDetails{Key: domain.NewFeedbackKey(domain.CategorySuccess)},
	})

	assert.Equal(t, "✓ Correct\n\nGreat job!\n", buf.String())
}

func TestPrintResult_Failure(t *testing.T) {
	noColor(t)

	line := 3
	stdout := "debug 1\ndebug 2\n"
	var buf bytes.Buffer
	printResult(&buf, &domain.SubmissionResult{
		Feedback: domain.Feedback{
			Paragraphs: []domain.Paragraph{
				domain.TextParagraph("Your code raised an error:"),
				domain.CodeParagraph("ZeroDivisionError: division by zero"),
			},
			ErrorLineNumber: &line,
		},
		Stdout: &stdout,
		Details: domain.FeedbackDetails{Key: domain.FeedbackKey{
			Category:          domain.CategoryRuntimeError,
			TaskIndex:         1,
			SpecificTestIndex: domain.NoSpecificTest,
		}},
	})

	want := "✗ Runtime error (task 2)\n" +
		"\nYour code raised an error:\n" +
		"\n    ZeroDivisionError: division by zero\n" +
		"\nError on line 3\n" +
		"\nYour code printed:\n    debug 1\n    debug 2\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintResult_EmptyStdoutOmitted(t *testing.T) {
	noColor(t)

	empty := ""
	var buf bytes.Buffer
	printResult(&buf, &domain.SubmissionResult{
		Stdout:  &empty,
		Details: domain.FeedbackDetails{Key: domain.NewFeedbackKey(domain.CategorySyntaxError)},
	})

	assert.Equal(t, "✗ Syntax error\n", buf.String())
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "    a\n    b\n", indent("a\nb\n"))
	assert.Equal(t, "    x\n", indent("x"))
}

func TestCategoryLabel_Unknown(t *testing.T) {
	assert.Equal(t, "MYSTERY", categoryLabel("MYSTERY"))
}
