// Package feedback renders evaluation decisions into learner-facing paragraphs.
package feedback

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/felixgeelhaar/nudge/internal/domain"
)

// DefaultSampleInputSuiteID is the suite whose failures show expected vs actual output.
const DefaultSampleInputSuiteID = "SAMPLE_INPUT"

// Config configures a Builder
type Config struct {
	// SampleInputSuiteIDs select the output-enabled template
	SampleInputSuiteIDs []string
	// LanguageName is used in the language-unfamiliarity prompt
	LanguageName string
}

// DefaultConfig returns the default builder configuration
func DefaultConfig() Config {
	return Config{
		SampleInputSuiteIDs: []string{DefaultSampleInputSuiteID},
		LanguageName:        "Python",
	}
}

// Builder assembles feedback. A Builder is stateless and safe for concurrent use.
type Builder struct {
	sampleSuites map[string]bool
	languageName string
}

// NewBuilder creates a new feedback builder
func NewBuilder(cfg Config) *Builder {
	b := &Builder{
		sampleSuites: make(map[string]bool, len(cfg.SampleInputSuiteIDs)),
		languageName: cfg.LanguageName,
	}
	for _, id := range cfg.SampleInputSuiteIDs {
		b.sampleSuites[id] = true
	}
	if b.languageName == "" {
		b.languageName = "Python"
	}
	return b
}

func newFeedback(paragraphs ...domain.Paragraph) domain.Feedback {
	return domain.Feedback{Paragraphs: paragraphs}
}

// MissingStarterCode asks the learner to restore the starter code.
func (b *Builder) MissingStarterCode(starterCode string) domain.Feedback {
	return newFeedback(
		domain.TextParagraph(missingStarterCodeText),
		domain.CodeParagraph(starterCode),
	)
}

// DisallowedImports lists unsupported libraries and the supported ones.
func (b *Builder) DisallowedImports(libraries, supported []string) domain.Feedback {
	return newFeedback(
		domain.TextParagraph(badImportText),
		domain.CodeParagraph(strings.Join(libraries, ", ")),
		domain.TextParagraph(supportedLibrariesText),
		domain.CodeParagraph(strings.Join(supported, ", ")),
	)
}

// GlobalCode asks the learner to move code into functions.
func (b *Builder) GlobalCode() domain.Feedback {
	return newFeedback(domain.TextParagraph(globalCodeText))
}

// WrongLanguage explains a construct borrowed from another language.
func (b *Builder) WrongLanguage(message, line string, lineNumber int) domain.Feedback {
	fb := newFeedback(domain.TextParagraph(message))
	if line != "" {
		fb.Paragraphs = append(fb.Paragraphs, domain.CodeParagraph(line))
	}
	fb.ErrorLineNumber = lineNumberPtr(lineNumber)
	return fb
}

// SyntaxError shows the parser's error, which starts with its category.
func (b *Builder) SyntaxError(errText string, lineNumber int) domain.Feedback {
	fb := newFeedback(
		domain.TextParagraph(syntaxErrorText),
		domain.CodeParagraph(errText),
	)
	fb.ErrorLineNumber = lineNumberPtr(lineNumber)
	return fb
}

// StackOverflow reports unbounded recursion.
func (b *Builder) StackOverflow() domain.Feedback {
	return newFeedback(domain.TextParagraph(stackOverflowText))
}

// UndeclaredVariable names an identifier the learner never defined.
func (b *Builder) UndeclaredVariable(name string) domain.Feedback {
	return newFeedback(domain.TextParagraph(fmt.Sprintf(undeclaredVariableTextFormat, name)))
}

// RuntimeError reports an exception raised for input.
func (b *Builder) RuntimeError(input any, errText string, lineNumber int) domain.Feedback {
	fb := newFeedback(
		domain.TextParagraph(fmt.Sprintf(runtimeErrorTextFormat, domain.Literal(input))),
		domain.CodeParagraph(errText),
	)
	fb.ErrorLineNumber = lineNumberPtr(lineNumber)
	return fb
}

// ExecutorFailure reports that the code could not be evaluated at all.
func (b *Builder) ExecutorFailure(errText string) domain.Feedback {
	return newFeedback(
		domain.TextParagraph(executorFailureText),
		domain.CodeParagraph(errText),
	)
}

// Hint renders an authored buggy-output or suite-level message.
func (b *Builder) Hint(message string) domain.Feedback {
	return newFeedback(domain.TextParagraph(message))
}

// TemplateFor returns the generic template used for failures in suiteID.
func (b *Builder) TemplateFor(suiteID string) Type {
	if b.sampleSuites[suiteID] {
		return TypeOutputEnabled
	}
	return TypeInputToTry
}

// Correctness renders generic feedback for a failing test case. The opening
// phrase is chosen from rawCode so that resubmitting identical code yields
// identical feedback.
func (b *Builder) Correctness(suiteID string, tc domain.TestCase, actual any, rawCode string) domain.Feedback {
	typ := b.TemplateFor(suiteID)
	phrase := pickPhrase(CorrectnessText[typ], rawCode)

	if typ == TypeOutputEnabled {
		var expected any
		if len(tc.AllowedOutputs) > 0 {
			expected = tc.AllowedOutputs[0]
		}
		return newFeedback(
			domain.TextParagraph(phrase),
			domain.OutputParagraph(fmt.Sprintf("Input: %s\nExpected Output: %s\nActual Output: %s",
				domain.Literal(tc.Input), domain.Literal(expected), domain.Literal(actual))),
		)
	}
	return newFeedback(
		domain.TextParagraph(phrase),
		domain.CodeParagraph("Input: "+domain.Literal(tc.Input)),
	)
}

// Success congratulates the learner.
func (b *Builder) Success() domain.Feedback {
	fb := newFeedback(domain.TextParagraph(successText))
	fb.IsAnswerCorrect = true
	return fb
}

// AddLanguageUnfamiliarityPrompt flags fb and appends the prompt text.
func (b *Builder) AddLanguageUnfamiliarityPrompt(fb *domain.Feedback) {
	fb.LanguageUnfamiliarityPrompt = true
	fb.Paragraphs = append(fb.Paragraphs, domain.TextParagraph(fmt.Sprintf(languageUnfamiliarityText, b.languageName)))
}

func pickPhrase(phrases []string, rawCode string) string {
	if len(phrases) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(rawCode))
	return phrases[h.Sum32()%uint32(len(phrases))]
}

func lineNumberPtr(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
