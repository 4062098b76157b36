package models

import (
	"time"

	"github.com/google/uuid"
)

// UserAnswer is the graded response to one question.
type UserAnswer struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	IsCorrect      bool      `json:"is_correct"`
	TimeSpent      int       `json:"time_spent"` // seconds
}

// TestResult is a completed attempt at a paper.
type TestResult struct {
	ID             uuid.UUID    `json:"id"`
	PaperID        uuid.UUID    `json:"paper_id"`
	VisitorID      *uuid.UUID   `json:"visitor_id,omitempty"`
	Answers        []UserAnswer `json:"answers"`
	Score          int          `json:"score"`
	TotalQuestions int          `json:"total_questions"`
	TotalTimeSpent int          `json:"total_time_spent"` // seconds
	CompletedAt    time.Time    `json:"completed_at"`
}

// Percentage returns the score as a whole percentage of total questions.
func (r *TestResult) Percentage() int {
	if r.TotalQuestions == 0 {
		return 0
	}
	return r.Score * 100 / r.TotalQuestions
}

// Incorrect returns the number of questions answered incorrectly or skipped.
func (r *TestResult) Incorrect() int {
	return r.TotalQuestions - r.Score
}

// AnswerFor returns the graded answer for a question, or nil.
func (r *TestResult) AnswerFor(questionID uuid.UUID) *UserAnswer {
	for i := range r.Answers {
		if r.Answers[i].QuestionID == questionID {
			return &r.Answers[i]
		}
	}
	return nil
}
