package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// AttemptStore persists graded test attempts.
type AttemptStore struct {
	db *sql.DB
}

// NewAttemptStore creates a new AttemptStore.
func NewAttemptStore(db *sql.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// Create stores a graded attempt and returns it with its id and
// completion time filled in.
func (s *AttemptStore) Create(ctx context.Context, r *models.TestResult) (*models.TestResult, error) {
	answers := r.Answers
	if answers == nil {
		answers = []models.UserAnswer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	out := *r
	out.Answers = answers
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO test_attempts (paper_id, visitor_id, answers, score, total_questions, total_time_spent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, completed_at
	`, r.PaperID, r.VisitorID, raw, r.Score, r.TotalQuestions, r.TotalTimeSpent,
	).Scan(&out.ID, &out.CompletedAt)
	if err != nil {
		return nil, translate("create attempt", err, ErrNotFound)
	}
	return &out, nil
}

// FindByID retrieves an attempt. Returns nil if not found.
func (s *AttemptStore) FindByID(ctx context.Context, id uuid.UUID) (*models.TestResult, error) {
	var (
		r   models.TestResult
		raw []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, paper_id, visitor_id, answers, score, total_questions, total_time_spent, completed_at
		FROM test_attempts WHERE id = $1
	`, id).Scan(&r.ID, &r.PaperID, &r.VisitorID, &raw, &r.Score, &r.TotalQuestions,
		&r.TotalTimeSpent, &r.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	if err := json.Unmarshal(raw, &r.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &r, nil
}

// PruneBefore deletes attempts completed before cutoff and returns how
// many were removed.
func (s *AttemptStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM test_attempts WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}
