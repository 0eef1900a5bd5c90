package domain

// FeedbackCategory classifies the single decisive outcome of a submission.
type FeedbackCategory string

const (
	CategoryPrereqFailure      FeedbackCategory = "PREREQ_FAILURE"
	CategorySyntaxError        FeedbackCategory = "SYNTAX_ERROR"
	CategoryRuntimeError       FeedbackCategory = "RUNTIME_ERROR"
	CategoryCorrectnessFailure FeedbackCategory = "CORRECTNESS_FAILURE"
	CategoryKnownBugFailure    FeedbackCategory = "KNOWN_BUG_FAILURE"
	CategorySuiteLevelFailure  FeedbackCategory = "SUITE_LEVEL_FAILURE"
	CategorySuccess            FeedbackCategory = "SUCCESS"
)

// AllCategories lists categories in cascade precedence order.
var AllCategories = []FeedbackCategory{
	CategoryPrereqFailure,
	CategorySyntaxError,
	CategoryRuntimeError,
	CategoryCorrectnessFailure,
	CategoryKnownBugFailure,
	CategorySuiteLevelFailure,
	CategorySuccess,
}

// IsValid returns true if c is a known category.
func (c FeedbackCategory) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// CyclesHints returns true if messages for this category advance across
// submissions.
func (c FeedbackCategory) CyclesHints() bool {
	return c == CategoryKnownBugFailure || c == CategorySuiteLevelFailure
}

// NoSpecificTest marks a key that does not point at a buggy or suite-level test.
const NoSpecificTest = -1

// FeedbackKey identifies where a feedback came from. Two keys are the same
// rule iff they are equal as values.
type FeedbackKey struct {
	Category          FeedbackCategory `json:"category"`
	TaskIndex         int              `json:"task_index"`
	SpecificTestIndex int              `json:"specific_test_index"`
}

// NewFeedbackKey returns a key for a category that is not tied to a task.
func NewFeedbackKey(category FeedbackCategory) FeedbackKey {
	return FeedbackKey{Category: category, TaskIndex: -1, SpecificTestIndex: NoSpecificTest}
}

// FeedbackDetails is the one record kept per submission.
type FeedbackDetails struct {
	Key          FeedbackKey `json:"key"`
	MessageIndex int         `json:"message_index"`
	// ExhaustedKey is set when generic feedback replaced a hint list that
	// had run out of messages.
	ExhaustedKey *FeedbackKey `json:"exhausted_key,omitempty"`
}

// ParagraphKind tells a renderer how to display a paragraph.
type ParagraphKind string

const (
	ParagraphText   ParagraphKind = "text"
	ParagraphCode   ParagraphKind = "code"
	ParagraphOutput ParagraphKind = "output"
)

// Paragraph is one unit of rendered feedback.
type Paragraph struct {
	Kind    ParagraphKind `json:"kind"`
	Content string        `json:"content"`
}

// TextParagraph creates a text paragraph
func TextParagraph(content string) Paragraph {
	return Paragraph{Kind: ParagraphText, Content: content}
}

// CodeParagraph creates a code paragraph
func CodeParagraph(content string) Paragraph {
	return Paragraph{Kind: ParagraphCode, Content: content}
}

// OutputParagraph creates an output paragraph
func OutputParagraph(content string) Paragraph {
	return Paragraph{Kind: ParagraphOutput, Content: content}
}

// Feedback is what the learner sees for a submission.
type Feedback struct {
	Paragraphs                  []Paragraph `json:"paragraphs"`
	IsAnswerCorrect             bool        `json:"is_answer_correct"`
	ErrorLineNumber             *int        `json:"error_line_number"`
	LanguageUnfamiliarityPrompt bool        `json:"language_unfamiliarity_prompt,omitempty"`
}

// SubmissionResult is the outcome of evaluating one submission.
// Stdout is nil when the code never ran.
type SubmissionResult struct {
	Feedback Feedback        `json:"feedback"`
	Stdout   *string         `json:"stdout"`
	Details  FeedbackDetails `json:"details"`
}

// Category returns the decisive category of the result.
func (r *SubmissionResult) Category() FeedbackCategory {
	return r.Details.Key.Category
}
