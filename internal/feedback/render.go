package feedback

import (
	"strings"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

// PlainText renders feedback as markdown-ish text. Code and output
// paragraphs are fenced.
func PlainText(fb domain.Feedback) string {
	var sb strings.Builder
	for i, p := range fb.Paragraphs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch p.Kind {
		case domain.ParagraphCode, domain.ParagraphOutput:
			sb.WriteString("```\n")
			sb.WriteString(strings.TrimRight(p.Content, "\n"))
			sb.WriteString("\n```")
		default:
			sb.WriteString(p.Content)
		}
	}
	return sb.String()
}
