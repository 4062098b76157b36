package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// moderatedProvider is a provider that also screens prompts.
type moderatedProvider struct {
	mockProvider
	result *ModerationResult
}

func (m *moderatedProvider) CheckPrompt(context.Context, string) (*ModerationResult, error) {
	return m.result, nil
}

func TestGenerateDescription(t *testing.T) {
	p := &mockProvider{reply: "  \"Description: Physics explores matter and energy.\"  "}
	a := NewAssistant(p)

	got, err := a.GenerateDescription(context.Background(), "Physics")
	if err != nil {
		t.Fatalf("GenerateDescription: %v", err)
	}
	if got != "Physics explores matter and energy." {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(p.lastUser, "Category Name: Physics") {
		t.Errorf("prompt = %q", p.lastUser)
	}

	if _, err := a.GeneratePaperDescription(context.Background(), "Algebra I"); err != nil {
		t.Fatalf("GeneratePaperDescription: %v", err)
	}
	if !strings.Contains(p.lastUser, "Paper Title: Algebra I") {
		t.Errorf("prompt = %q", p.lastUser)
	}

	p.reply = "   "
	if _, err := a.GenerateDescription(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("blank reply: err = %v", err)
	}
}

func TestGenerateSEODetails(t *testing.T) {
	long := strings.Repeat("word ", 50)
	p := &mockProvider{reply: "Here you go:\n" +
		"**KEYWORDS:** physics, Mechanics, , physics, forces\n" +
		"**META_TITLE:** Physics Practice Papers\n" +
		"META DESCRIPTION: " + long + "\n" +
		"continued on a second line"}
	a := NewAssistant(p)

	d, err := a.GenerateSEODetails(context.Background(), "Physics", "Matter and energy.")
	if err != nil {
		t.Fatalf("GenerateSEODetails: %v", err)
	}
	if d.Keywords != "physics, Mechanics, forces" {
		t.Errorf("Keywords = %q", d.Keywords)
	}
	if d.MetaTitle != "Physics Practice Papers" {
		t.Errorf("MetaTitle = %q", d.MetaTitle)
	}
	if n := utf8.RuneCountInString(d.MetaDescription); n == 0 || n > MaxMetaDescription {
		t.Errorf("MetaDescription length = %d", n)
	}
	if strings.HasSuffix(d.MetaDescription, " ") {
		t.Errorf("MetaDescription has trailing space: %q", d.MetaDescription)
	}
}

func TestGeneratePaperSEODetailsPrompt(t *testing.T) {
	p := &mockProvider{reply: "KEYWORDS: calculus\nMETA_TITLE: " + strings.Repeat("x", 80) + "\nMETA_DESCRIPTION: d"}
	a := NewAssistant(p)

	year := 2023
	d, err := a.GeneratePaperSEODetails(context.Background(), "Calculus I", "Limits.", "Mathematics / Calculus", &year)
	if err != nil {
		t.Fatalf("GeneratePaperSEODetails: %v", err)
	}
	if utf8.RuneCountInString(d.MetaTitle) != MaxMetaTitle {
		t.Errorf("MetaTitle not clamped: %d", utf8.RuneCountInString(d.MetaTitle))
	}
	for _, want := range []string{"Paper Title: Calculus I", "Category: Mathematics / Calculus", "Year: 2023"} {
		if !strings.Contains(p.lastUser, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if _, err := a.GeneratePaperSEODetails(context.Background(), "t", "d", "c", nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(p.lastUser, "Year:") {
		t.Error("prompt mentions year when none was given")
	}

	p.reply = "nothing useful"
	if _, err := a.GenerateSEODetails(context.Background(), "n", "d"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("unlabelled reply: err = %v", err)
	}
}

func TestPersonalizedFeedback(t *testing.T) {
	p := &mockProvider{reply: "Feedback: Close, but inertia is the key idea.\nIt resists changes in motion.\nSuggestions: Review Newton's laws."}
	a := NewAssistant(p)

	fb, err := a.PersonalizedFeedback(context.Background(), FeedbackInput{
		Question: "Newton's first law?", UserAnswer: "", CorrectAnswer: "Inertia",
		Category: "Science", Subcategory: "Physics",
	})
	if err != nil {
		t.Fatalf("PersonalizedFeedback: %v", err)
	}
	if fb.Feedback != "Close, but inertia is the key idea.\nIt resists changes in motion." {
		t.Errorf("Feedback = %q", fb.Feedback)
	}
	if fb.Suggestions != "Review Newton's laws." {
		t.Errorf("Suggestions = %q", fb.Suggestions)
	}
	if !strings.Contains(p.lastUser, "User's Answer: No answer provided.") {
		t.Errorf("prompt = %q", p.lastUser)
	}

	p.reply = "Just a paragraph of advice."
	fb, err = a.PersonalizedFeedback(context.Background(), FeedbackInput{UserAnswer: "x"})
	if err != nil || fb.Feedback != "Just a paragraph of advice." || fb.Suggestions != "" {
		t.Errorf("unlabelled = %+v, %v", fb, err)
	}
}

func TestPersonalizedFeedbackModeration(t *testing.T) {
	p := &moderatedProvider{
		mockProvider: mockProvider{reply: "Feedback: ok"},
		result:       &ModerationResult{Safe: false, Categories: []string{"harassment"}},
	}
	a := NewAssistant(p)

	_, err := a.PersonalizedFeedback(context.Background(), FeedbackInput{UserAnswer: "rude words"})
	if !errors.Is(err, ErrUnsafePrompt) {
		t.Fatalf("err = %v, want ErrUnsafePrompt", err)
	}
	if p.calls != 0 {
		t.Error("provider called for a flagged prompt")
	}

	// Unanswered questions skip moderation entirely.
	if _, err := a.PersonalizedFeedback(context.Background(), FeedbackInput{}); err != nil {
		t.Errorf("empty answer: %v", err)
	}
}

func TestRecommendResources(t *testing.T) {
	p := &mockProvider{reply: "\n- Khan Academy: Algebra\n"}
	a := NewAssistant(p)

	got, err := a.RecommendResources(context.Background(), "Score: 1/3", "Solve for x")
	if err != nil {
		t.Fatalf("RecommendResources: %v", err)
	}
	if got != "- Khan Academy: Algebra" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(p.lastUser, "User Performance Data: Score: 1/3") ||
		!strings.Contains(p.lastUser, "Identified Weak Areas: Solve for x") {
		t.Errorf("prompt = %q", p.lastUser)
	}

	p.err = errors.New("quota")
	if _, err := a.RecommendResources(context.Background(), "", ""); err == nil {
		t.Error("provider error not returned")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"alpha beta gamma", 12, "alpha beta"},
		{"abcdefghij", 5, "abcde"},
		{"héllo wörld again", 11, "héllo wörld"},
	}
	for _, tt := range tests {
		if got := clamp(tt.in, tt.n); got != tt.want {
			t.Errorf("clamp(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
