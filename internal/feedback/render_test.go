package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

func TestPlainText(t *testing.T) {
	fb := domain.Feedback{Paragraphs: []domain.Paragraph{
		domain.TextParagraph("Your code produced the following output:"),
		domain.OutputParagraph("olleH\n"),
		domain.TextParagraph("when given:"),
		domain.CodeParagraph(`"Hello"`),
	}}

	want := "Your code produced the following output:\n\n```\nolleH\n```\n\nwhen given:\n\n```\n\"Hello\"\n```"
	assert.Equal(t, want, PlainText(fb))
}

func TestPlainText_Empty(t *testing.T) {
	assert.Empty(t, PlainText(domain.Feedback{}))
}
