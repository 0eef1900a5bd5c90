package domain

import "testing"

func TestFeedbackCategory_CyclesHints(t *testing.T) {
	for _, c := range AllCategories {
		want := c == CategoryKnownBugFailure || c == CategorySuiteLevelFailure
		if got := c.CyclesHints(); got != want {
			t.Errorf("%s.CyclesHints() = %v, want %v", c, got, want)
		}
		if !c.IsValid() {
			t.Errorf("%s.IsValid() = false", c)
		}
	}
	if FeedbackCategory("STACK_EXCEEDED").IsValid() {
		t.Error("unknown category should be invalid")
	}
}

func TestFeedbackKey_Equality(t *testing.T) {
	a := FeedbackKey{Category: CategoryKnownBugFailure, TaskIndex: 0, SpecificTestIndex: 1}
	b := FeedbackKey{Category: CategoryKnownBugFailure, TaskIndex: 0, SpecificTestIndex: 1}
	c := FeedbackKey{Category: CategorySuiteLevelFailure, TaskIndex: 0, SpecificTestIndex: 1}

	if a != b {
		t.Error("identical keys should be equal")
	}
	if a == c {
		t.Error("keys with different categories should differ")
	}

	k := NewFeedbackKey(CategorySyntaxError)
	if k.TaskIndex != -1 || k.SpecificTestIndex != NoSpecificTest {
		t.Errorf("NewFeedbackKey() = %+v", k)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"task_1_correctness_test_2", `"task_1_correctness_test_2"`},
		{true, "true"},
		{3, "3"},
		{[]any{1, "a"}, `[1,"a"]`},
		{"a<b", `"a<b"`},
		{nil, "null"},
	}
	for _, tt := range tests {
		if got := Literal(tt.in); got != tt.want {
			t.Errorf("Literal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same string", "a", "a", true},
		{"int float", 1, 1.0, true},
		{"maps", map[string]any{"k": 1}, map[string]any{"k": 1.0}, true},
		{"different", "a", "b", false},
		{"nil nil", nil, nil, true},
		{"string vs number", "1", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValuesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("ValuesEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
