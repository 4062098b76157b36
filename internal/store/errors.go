package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParent is returned when a category would be moved under
	// itself, one of its descendants or a category that does not exist.
	ErrInvalidParent = errors.New("a category cannot be placed under itself or one of its sub-categories")

	// ErrParentHasPapers is returned when the chosen parent already holds
	// papers. Papers live on leaf categories only.
	ErrParentHasPapers = errors.New("the selected parent category already contains papers")

	// ErrInvalidCategory is returned when a paper is assigned to a missing
	// category or to one that has sub-categories.
	ErrInvalidCategory = errors.New("papers can only be assigned to a category without sub-categories")

	// ErrSlugTaken is returned on a slug uniqueness violation.
	ErrSlugTaken = errors.New("slug is already in use")
)

// InUseError blocks deleting a category that still has sub-categories or
// papers attached.
type InUseError struct {
	Subcategories int
	Papers        int
}

func (e *InUseError) Error() string {
	const prefix = "This category cannot be deleted because it contains "
	switch {
	case e.Subcategories > 0 && e.Papers > 0:
		return prefix + "sub-categories and papers."
	case e.Subcategories > 0:
		return prefix + "sub-categories."
	default:
		return prefix + "papers."
	}
}

// PostgreSQL error codes the stores translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate maps constraint violations onto the store's sentinel errors.
// Anything else is wrapped with op.
func translate(op string, err error, fk error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return ErrSlugTaken
	case pgForeignKeyViolation:
		if fk != nil {
			return fk
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
