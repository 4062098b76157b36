package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Output limits for SEO fields.
const (
	MaxMetaTitle       = 60
	MaxMetaDescription = 160
)

// ErrUnsafePrompt is returned when moderation flags visitor input.
var ErrUnsafePrompt = errors.New("ai: prompt flagged by moderation")

// ErrEmptyResponse is returned when the model produced nothing usable.
var ErrEmptyResponse = errors.New("ai: empty response")

// Generator produces text from a prompt pair. *Registry implements it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PromptChecker screens visitor text. *Registry implements it.
type PromptChecker interface {
	CheckPrompt(ctx context.Context, text string) (*ModerationResult, error)
}

// SEODetails is the output of the SEO flows.
type SEODetails struct {
	Keywords        string
	MetaTitle       string
	MetaDescription string
}

// Feedback is the output of the per-question feedback flow.
type Feedback struct {
	Feedback    string
	Suggestions string
}

// FeedbackInput describes one answered question.
type FeedbackInput struct {
	Question      string
	UserAnswer    string
	CorrectAnswer string
	Category      string
	Subcategory   string
}

// Assistant runs the content and study flows on a Generator.
type Assistant struct {
	gen   Generator
	check PromptChecker
}

// NewAssistant returns an Assistant. When gen also implements
// PromptChecker, visitor answers are moderated before generation.
func NewAssistant(gen Generator) *Assistant {
	a := &Assistant{gen: gen}
	if c, ok := gen.(PromptChecker); ok {
		a.check = c
	}
	return a
}

const (
	writerSystem = "You are an expert content writer for a website that offers practice question papers. " +
		"Reply with plain text only, without headings or Markdown."
	seoSystem = "You are an SEO expert. Use simple and easy-to-understand language. " +
		"Reply only with the labelled lines you are asked for."
	tutorSystem = "You are a patient tutor giving constructive and encouraging feedback to a student."
)

// GenerateDescription writes a two to three sentence category description.
func (a *Assistant) GenerateDescription(ctx context.Context, name string) (string, error) {
	prompt := "Given the following category name, generate a concise and informative description for it. " +
		"The description should be about 2-3 sentences long.\n\nCategory Name: " + name
	return a.description(ctx, prompt)
}

// GeneratePaperDescription writes a two to three sentence paper description.
func (a *Assistant) GeneratePaperDescription(ctx context.Context, title string) (string, error) {
	prompt := "Given the following question paper title, generate a concise and informative description for it. " +
		"The description should be about 2-3 sentences long.\n\nPaper Title: " + title
	return a.description(ctx, prompt)
}

func (a *Assistant) description(ctx context.Context, prompt string) (string, error) {
	out, err := a.gen.Generate(ctx, writerSystem, prompt)
	if err != nil {
		return "", err
	}
	out = stripLabel(cleanText(out), "description")
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// GenerateSEODetails produces keywords, meta title and meta description for
// a category.
func (a *Assistant) GenerateSEODetails(ctx context.Context, name, description string) (*SEODetails, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Category Name: %s\nCategory Description: %s\n\n", name, description)
	b.WriteString(seoInstructions)
	return a.seo(ctx, b.String())
}

// GeneratePaperSEODetails produces keywords, meta title and meta
// description for a paper. categoryPath reads like "Science / Physics";
// year may be nil.
func (a *Assistant) GeneratePaperSEODetails(ctx context.Context, title, description, categoryPath string, year *int) (*SEODetails, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Paper Title: %s\nPaper Description: %s\nCategory: %s\n", title, description, categoryPath)
	if year != nil {
		b.WriteString("Year: " + strconv.Itoa(*year) + "\n")
	}
	b.WriteString("\n" + seoInstructions)
	return a.seo(ctx, b.String())
}

const seoInstructions = "Generate a comma-separated list of keywords, a compelling meta title under 60 characters " +
	"and an engaging meta description under 160 characters. Answer in exactly this format:\n" +
	"KEYWORDS: <keywords>\nMETA_TITLE: <title>\nMETA_DESCRIPTION: <description>"

func (a *Assistant) seo(ctx context.Context, prompt string) (*SEODetails, error) {
	out, err := a.gen.Generate(ctx, seoSystem, prompt)
	if err != nil {
		return nil, err
	}
	fields := parseLabelled(out, "KEYWORDS", "META_TITLE", "META_DESCRIPTION")
	d := &SEODetails{
		Keywords:        normalizeKeywords(fields["KEYWORDS"]),
		MetaTitle:       clamp(fields["META_TITLE"], MaxMetaTitle),
		MetaDescription: clamp(fields["META_DESCRIPTION"], MaxMetaDescription),
	}
	if d.Keywords == "" && d.MetaTitle == "" && d.MetaDescription == "" {
		return nil, ErrEmptyResponse
	}
	return d, nil
}

// PersonalizedFeedback explains a visitor's answer against the correct one.
func (a *Assistant) PersonalizedFeedback(ctx context.Context, in FeedbackInput) (*Feedback, error) {
	answer := strings.TrimSpace(in.UserAnswer)
	if answer == "" {
		answer = "No answer provided."
	} else if err := a.screen(ctx, answer); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Question: %s\nUser's Answer: %s\nCorrect Answer: %s\nCategory: %s\nSubcategory: %s\n\n"+
		"Analyze the user's answer, compare it to the correct answer and give specific feedback on their mistakes. "+
		"Offer suggestions for improvement and recommend relevant learning resources. Answer in exactly this format:\n"+
		"FEEDBACK: <feedback on the answer>\nSUGGESTIONS: <suggestions for further learning>",
		in.Question, answer, in.CorrectAnswer, in.Category, in.Subcategory)

	out, err := a.gen.Generate(ctx, tutorSystem, prompt)
	if err != nil {
		return nil, err
	}
	fields := parseLabelled(out, "FEEDBACK", "SUGGESTIONS")
	fb := &Feedback{Feedback: fields["FEEDBACK"], Suggestions: fields["SUGGESTIONS"]}
	if fb.Feedback == "" && fb.Suggestions == "" {
		// Unlabelled reply: keep it whole as feedback.
		fb.Feedback = cleanText(out)
	}
	if fb.Feedback == "" {
		return nil, ErrEmptyResponse
	}
	return fb, nil
}

// RecommendResources suggests learning resources from a performance
// summary and a list of weak areas.
func (a *Assistant) RecommendResources(ctx context.Context, performance, weakAreas string) (string, error) {
	prompt := fmt.Sprintf("User Performance Data: %s\nIdentified Weak Areas: %s\n\n"+
		"Recommend relevant learning resources as a short Markdown list.", performance, weakAreas)
	out, err := a.gen.Generate(ctx, "You are an expert learning resource recommender.", prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (a *Assistant) screen(ctx context.Context, text string) error {
	if a.check == nil {
		return nil
	}
	res, err := a.check.CheckPrompt(ctx, text)
	if err != nil {
		// Moderation outages fail open.
		return nil
	}
	if !res.Safe {
		return fmt.Errorf("%w: %s", ErrUnsafePrompt, strings.Join(res.Categories, ", "))
	}
	return nil
}

// parseLabelled extracts "LABEL: value" sections from text. A value runs
// until the next known label. Labels match case-insensitively and may be
// wrapped in Markdown bold markers.
func parseLabelled(text string, labels ...string) map[string]string {
	out := make(map[string]string, len(labels))
	var cur string
	var buf []string
	flush := func() {
		if cur != "" {
			out[cur] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}

	for line := range strings.Lines(text) {
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "*#- ")
		matched := false
		for _, l := range labels {
			if value, ok := cutLabel(trimmed, l); ok {
				flush()
				cur = l
				buf = append(buf, value)
				matched = true
				break
			}
		}
		if !matched && cur != "" {
			buf = append(buf, line)
		}
	}
	flush()
	return out
}

// cutLabel reports whether line starts with label followed by a colon and
// returns the rest. Underscores in label also match spaces.
func cutLabel(line, label string) (string, bool) {
	for _, form := range []string{label, strings.ReplaceAll(label, "_", " ")} {
		if len(line) <= len(form) || !strings.EqualFold(line[:len(form)], form) {
			continue
		}
		rest := strings.TrimLeft(line[len(form):], "*")
		if after, ok := strings.CutPrefix(rest, ":"); ok {
			return strings.TrimSpace(strings.Trim(after, "*")), true
		}
	}
	return "", false
}

// stripLabel removes a leading "label:" from s.
func stripLabel(s, label string) string {
	if v, ok := cutLabel(s, label); ok {
		return v
	}
	return s
}

// cleanText trims whitespace and surrounding quotes.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"') {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// clamp shortens s to at most n runes, cutting at a word boundary when one
// falls in the second half.
func clamp(s string, n int) string {
	s = cleanText(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-")
}

// normalizeKeywords trims entries and drops blanks and case-insensitive
// duplicates.
func normalizeKeywords(s string) string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range strings.Split(cleanText(s), ",") {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	return strings.Join(out, ", ")
}
