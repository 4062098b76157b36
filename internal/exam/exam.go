// Package exam grades test submissions and prepares the inputs of the
// results page: solved-paper pagination, feedback categories and the
// performance text handed to the recommendation flow.
package exam

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// QuestionsPerPage is the number of questions shown per page of a solved paper.
const QuestionsPerPage = 2

// NoWeakAreas is sent to the recommendation flow when every answer was correct.
const NoWeakAreas = "No specific weak areas identified, general review recommended."

// Grade scores answers against questions. answers maps question ids to the
// submitted text; missing entries count as unanswered. Answers are recorded
// in question order. totalTime is the elapsed time in seconds.
func Grade(paperID uuid.UUID, questions []models.Question, answers map[uuid.UUID]string, totalTime int) *models.TestResult {
	if totalTime < 0 {
		totalTime = 0
	}
	r := &models.TestResult{
		PaperID:        paperID,
		Answers:        make([]models.UserAnswer, 0, len(questions)),
		TotalQuestions: len(questions),
		TotalTimeSpent: totalTime,
	}
	for i := range questions {
		q := &questions[i]
		given := strings.TrimSpace(answers[q.ID])
		ok := q.Accepts(given)
		if ok {
			r.Score++
		}
		r.Answers = append(r.Answers, models.UserAnswer{
			QuestionID:     q.ID,
			SelectedOption: given,
			IsCorrect:      ok,
		})
	}
	return r
}

// Page is one page of a solved paper.
type Page struct {
	Questions []models.Question
	Number    int // 1-based
	Total     int
	Offset    int // index of the first question on the page
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.Total }

// Paginate returns page number page of questions. Out of range page numbers
// are clamped to the first or last page. A non-positive perPage falls back
// to QuestionsPerPage.
func Paginate(questions []models.Question, page, perPage int) Page {
	if perPage <= 0 {
		perPage = QuestionsPerPage
	}
	total := (len(questions) + perPage - 1) / perPage
	if total == 0 {
		return Page{Number: 1, Total: 1, Questions: []models.Question{}}
	}
	page = max(1, min(page, total))

	start := (page - 1) * perPage
	end := min(start+perPage, len(questions))
	return Page{
		Questions: questions[start:end],
		Number:    page,
		Total:     total,
		Offset:    start,
	}
}

// FeedbackCategories returns the top-level and the most specific category
// names along path. Either falls back to "General" when unknown.
func FeedbackCategories(path []models.Category) (category, subcategory string) {
	category, subcategory = "General", "General"
	if len(path) == 0 {
		return
	}
	if n := path[0].Name; n != "" {
		category = n
	}
	if n := path[len(path)-1].Name; n != "" {
		subcategory = n
	}
	return
}

// PerformanceSummary formats the score for the recommendation flow.
func PerformanceSummary(r *models.TestResult) string {
	return fmt.Sprintf("Score: %d/%d", r.Score, r.TotalQuestions)
}

// WeakAreas joins the text of every question answered incorrectly.
func WeakAreas(r *models.TestResult, questions []models.Question) string {
	byID := make(map[uuid.UUID]string, len(questions))
	for _, q := range questions {
		byID[q.ID] = q.QuestionText
	}

	var weak []string
	for _, a := range r.Answers {
		if a.IsCorrect {
			continue
		}
		if text, ok := byID[a.QuestionID]; ok {
			weak = append(weak, text)
		}
	}
	if len(weak) == 0 {
		return NoWeakAreas
	}
	return strings.Join(weak, ", ")
}

// CorrectAnswerText renders the accepted answers of q.
func CorrectAnswerText(q *models.Question) string {
	return q.CorrectAnswerText()
}
