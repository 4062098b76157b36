package engine

import (
	"html/template"

	"prepify/internal/exam"
	"prepify/internal/models"
)

// Meta fills the <head> of a page.
type Meta struct {
	Title       string
	Description string
	Keywords    string
	CSRFToken   string // set only on pages that are never cached
}

// Page is the root value passed to the layout.
type Page struct {
	Meta    Meta
	Content any
	Year    int
}

// Crumb is one breadcrumb link.
type Crumb struct {
	Name string
	URL  string
}

// CategoryCard is a category with its public path and the number of
// published papers in its subtree.
type CategoryCard struct {
	Category   models.Category
	Path       string
	PaperCount int
	Children   []CategoryCard
}

// HomeView lists the featured catalog entries.
type HomeView struct {
	Categories []CategoryCard
	Papers     []models.Paper
}

// CategoriesView is the full published tree.
type CategoriesView struct {
	Nodes []CategoryCard
}

// CategoryView is one category page.
type CategoryView struct {
	Category      models.Category
	Breadcrumbs   []Crumb
	Subcategories []CategoryCard
	Papers        []models.Paper
}

// PapersView lists every published paper.
type PapersView struct {
	Papers []models.Paper
}

// SolvedQuestion is a question shown with its answer and explanation.
type SolvedQuestion struct {
	Number      int
	Question    models.Question
	Explanation template.HTML
}

// PaperView is one page of a solved paper.
type PaperView struct {
	Paper       models.Paper
	Breadcrumbs []Crumb
	Page        exam.Page
	Items       []SolvedQuestion
}

// TestView is the test-taking form.
type TestView struct {
	Paper     models.Paper
	Questions []SolvedQuestion
	StartedAt int64 // unix seconds, echoed back to time the attempt
	CSRFToken string
	Error     string
}

// ResultItem pairs a question with the visitor's graded answer.
type ResultItem struct {
	Number      int
	Question    models.Question
	Answer      models.UserAnswer
	Explanation template.HTML
}

// ResultsView is the results page of an attempt.
type ResultsView struct {
	Result    *models.TestResult
	Paper     models.Paper
	Items     []ResultItem
	Summary   string
	AIEnabled bool
}

// FeedbackView is the HTMX fragment for per-question feedback.
type FeedbackView struct {
	Feedback    string
	Suggestions string
	Error       string
}

// RecommendationsView is the HTMX fragment for study recommendations.
type RecommendationsView struct {
	Text  string
	Error string
}
