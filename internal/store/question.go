package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// QuestionStore manages the questions of papers.
type QuestionStore struct {
	db       *sql.DB
	cacheLog *CacheLogStore
}

// NewQuestionStore creates a new QuestionStore. cacheLog may be nil.
func NewQuestionStore(db *sql.DB, cacheLog *CacheLogStore) *QuestionStore {
	return &QuestionStore{db: db, cacheLog: cacheLog}
}

const questionColumns = `id, paper_id, type, question_text, options, correct_answer,
	explanation, position, created_at, updated_at`

func scanQuestion(scanner interface{ Scan(...any) error }) (*models.Question, error) {
	var q models.Question
	err := scanner.Scan(
		&q.ID, &q.PaperID, &q.Type, &q.QuestionText, &q.Options, &q.CorrectAnswer,
		&q.Explanation, &q.Position, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListByPaper returns the questions of a paper in display order.
func (s *QuestionStore) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM questions WHERE paper_id = $1
		ORDER BY position, created_at
	`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	items := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, *q)
	}
	return items, rows.Err()
}

// FindByID retrieves a question. Returns nil if not found.
func (s *QuestionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find question by id: %w", err)
	}
	return q, nil
}

// Create inserts a question. A zero Position appends it after the last
// question of the paper.
func (s *QuestionStore) Create(ctx context.Context, q *models.Question) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO questions (paper_id, type, question_text, options, correct_answer, explanation, position)
		VALUES ($1, $2, $3, $4, $5, $6,
		        CASE WHEN $7 > 0 THEN $7
		             ELSE (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE paper_id = $1)
		        END)
		RETURNING `+questionColumns,
		q.PaperID, q.Type, q.QuestionText, q.Options, q.CorrectAnswer, q.Explanation, q.Position,
	)
	created, err := scanQuestion(row)
	if err != nil {
		return nil, translate("create question", err, ErrNotFound)
	}

	s.logInvalidation(ctx, created.ID, "create")
	return created, nil
}

// Update modifies an existing question.
func (s *QuestionStore) Update(ctx context.Context, q *models.Question) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE questions SET
			type = $1, question_text = $2, options = $3, correct_answer = $4,
			explanation = $5, position = $6, updated_at = NOW()
		WHERE id = $7
	`, q.Type, q.QuestionText, q.Options, q.CorrectAnswer, q.Explanation, q.Position, q.ID)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logInvalidation(ctx, q.ID, "update")
	return nil
}

// Delete removes a question.
func (s *QuestionStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logInvalidation(ctx, id, "delete")
	return nil
}

// Count returns the total number of questions across all papers.
func (s *QuestionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *QuestionStore) logInvalidation(ctx context.Context, id uuid.UUID, action string) {
	if s.cacheLog != nil {
		s.cacheLog.Log(ctx, EntityQuestion, id, action)
	}
}
