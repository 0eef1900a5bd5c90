package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/session"
)

func event(sessionID, questionID string, attempt int, category domain.FeedbackCategory, prompt bool) session.SubmissionEvent {
	return session.SubmissionEvent{
		SessionID:  sessionID,
		QuestionID: questionID,
		Attempt:    attempt,
		Result: &domain.SubmissionResult{
			Feedback: domain.Feedback{
				Paragraphs:                  []domain.Paragraph{domain.TextParagraph(string(category))},
				IsAnswerCorrect:             category == domain.CategorySuccess,
				LanguageUnfamiliarityPrompt: prompt,
			},
			Details: domain.FeedbackDetails{Key: domain.FeedbackKey{Category: category, TaskIndex: 0, SpecificTestIndex: domain.NoSpecificTest}},
		},
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Now(),
	}
}

func TestSubmissionLog_Stats(t *testing.T) {
	log := NewSubmissionLog(openTestDB(t))
	ctx := context.Background()

	events := []session.SubmissionEvent{
		event("s1", "reverse-words", 1, domain.CategorySyntaxError, false),
		event("s1", "reverse-words", 2, domain.CategorySyntaxError, false),
		event("s1", "reverse-words", 3, domain.CategorySuccess, false),
		event("s2", "reverse-words", 1, domain.CategoryRuntimeError, true),
		event("s3", "running-total", 1, domain.CategorySuccess, false),
	}
	for _, e := range events {
		if err := log.OnSubmission(ctx, e); err != nil {
			t.Fatalf("OnSubmission() error = %v", err)
		}
	}

	stats, err := log.Stats(ctx, "reverse-words")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 4 || stats.Correct != 1 || stats.LanguagePrompts != 1 || stats.Sessions != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByCategory[string(domain.CategorySyntaxError)] != 2 || stats.ByCategory[string(domain.CategoryRuntimeError)] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}

	all, err := log.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats(all) error = %v", err)
	}
	if all.Total != 5 || all.Correct != 2 || all.Sessions != 3 {
		t.Errorf("all stats = %+v", all)
	}
}

func TestSubmissionLog_StatsEmpty(t *testing.T) {
	stats, err := NewSubmissionLog(openTestDB(t)).Stats(context.Background(), "none")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 0 || len(stats.ByCategory) != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSubmissionLog_Recent(t *testing.T) {
	log := NewSubmissionLog(openTestDB(t))
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := log.OnSubmission(ctx, event("s1", "q", i, domain.CategoryCorrectnessFailure, false)); err != nil {
			t.Fatal(err)
		}
	}
	_ = log.OnSubmission(ctx, event("s2", "q", 1, domain.CategorySuccess, false))

	records, err := log.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d; want 2", len(records))
	}
	r := records[0]
	if r.Attempt != 3 || r.Key.Category != domain.CategoryCorrectnessFailure || r.Key.SpecificTestIndex != domain.NoSpecificTest {
		t.Errorf("record = %+v", r)
	}
	if r.Duration != 1500*time.Millisecond || len(r.Paragraphs) != 1 {
		t.Errorf("Duration = %v, Paragraphs = %v", r.Duration, r.Paragraphs)
	}
}

func TestSubmissionLog_RejectsEmptyEvent(t *testing.T) {
	log := NewSubmissionLog(openTestDB(t))
	if err := log.OnSubmission(context.Background(), session.SubmissionEvent{SessionID: "s"}); err == nil {
		t.Error("OnSubmission() should reject events without a result")
	}
}

func TestSubmissionLog_Prune(t *testing.T) {
	log := NewSubmissionLog(openTestDB(t))
	ctx := context.Background()

	old := event("s1", "q", 1, domain.CategorySuccess, false)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	_ = log.OnSubmission(ctx, old)
	_ = log.OnSubmission(ctx, event("s1", "q", 2, domain.CategorySuccess, false))

	n, err := log.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d; want 1", n)
	}
}
