// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// PaperStore handles all paper-related database operations.
type PaperStore struct {
	db       *sql.DB
	cacheLog *CacheLogStore
}

// NewPaperStore creates a new PaperStore. cacheLog may be nil.
func NewPaperStore(db *sql.DB, cacheLog *CacheLogStore) *PaperStore {
	return &PaperStore{db: db, cacheLog: cacheLog}
}

const paperColumns = `p.id, p.title, p.slug, p.description, p.category_id, p.duration,
	p.year, p.session, p.featured, p.published, p.keywords, p.meta_title,
	p.meta_description, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM questions q WHERE q.paper_id = p.id) AS question_count`

func scanPaper(scanner interface{ Scan(...any) error }) (*models.Paper, error) {
	var p models.Paper
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.CategoryID, &p.Duration,
		&p.Year, &p.Session, &p.Featured, &p.Published, &p.Keywords, &p.MetaTitle,
		&p.MetaDescription, &p.CreatedAt, &p.UpdatedAt, &p.QuestionCount,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaperStore) query(ctx context.Context, op, where, order string, args ...any) ([]models.Paper, error) {
	q := `SELECT ` + paperColumns + ` FROM papers p`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY ` + order

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// List returns every paper, newest first. Used by the back-office.
func (s *PaperStore) List(ctx context.Context) ([]models.Paper, error) {
	return s.query(ctx, "list papers", "", "p.created_at DESC, p.title")
}

// ListPublished returns all published papers ordered by title.
func (s *PaperStore) ListPublished(ctx context.Context) ([]models.Paper, error) {
	return s.query(ctx, "list published papers", "p.published", "p.title, p.id")
}

// ListFeatured returns up to limit published featured papers.
func (s *PaperStore) ListFeatured(ctx context.Context, limit int) ([]models.Paper, error) {
	return s.query(ctx, "list featured papers", "p.published AND p.featured",
		"p.title, p.id LIMIT $1", limit)
}

// ListByCategories returns the papers assigned to any of the given
// categories. With publishedOnly, drafts are left out.
func (s *PaperStore) ListByCategories(ctx context.Context, ids []uuid.UUID, publishedOnly bool) ([]models.Paper, error) {
	if len(ids) == 0 {
		return []models.Paper{}, nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	where := "p.category_id = ANY($1::uuid[])"
	if publishedOnly {
		where += " AND p.published"
	}
	return s.query(ctx, "list papers by category", where, "p.title, p.id", strs)
}

// FindByID retrieves a paper by its UUID. Returns nil if not found.
func (s *PaperStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Paper, error) {
	return s.findOne(ctx, "find paper by id", "p.id = $1", id)
}

// FindBySlug retrieves a paper by slug regardless of its published state.
// Returns nil if not found.
func (s *PaperStore) FindBySlug(ctx context.Context, slug string) (*models.Paper, error) {
	return s.findOne(ctx, "find paper by slug", "p.slug = $1", slug)
}

func (s *PaperStore) findOne(ctx context.Context, op, where string, arg any) (*models.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers p WHERE `+where, arg)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// checkLeaf ensures the category exists and has no sub-categories. The
// category row is share-locked, which waits out any category write holding
// the table lock and blocks new ones until q's transaction ends.
func checkLeaf(ctx context.Context, q querier, categoryID uuid.UUID) error {
	var locked uuid.UUID
	err := q.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE id = $1 FOR SHARE`, categoryID,
	).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCategory
	}
	if err != nil {
		return fmt.Errorf("check paper category: %w", err)
	}

	var parent bool
	err = q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)`, categoryID,
	).Scan(&parent)
	if err != nil {
		return fmt.Errorf("check paper category: %w", err)
	}
	if parent {
		return ErrInvalidCategory
	}
	return nil
}

// Create inserts a new paper and returns it. The category must be a leaf.
func (s *PaperStore) Create(ctx context.Context, p *models.Paper) (*models.Paper, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkLeaf(ctx, tx, p.CategoryID); err != nil {
		return nil, err
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO papers (title, slug, description, category_id, duration, year, session,
		                    featured, published, keywords, meta_title, meta_description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, p.Title, p.Slug, p.Description, p.CategoryID, p.Duration, p.Year, p.Session,
		p.Featured, p.Published, p.Keywords, p.MetaTitle, p.MetaDescription,
	).Scan(&id)
	if err != nil {
		return nil, translate("create paper", err, ErrInvalidCategory)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit paper: %w", err)
	}

	s.logInvalidation(ctx, id, "create")
	return s.FindByID(ctx, id)
}

// Update modifies an existing paper. The category must be a leaf.
func (s *PaperStore) Update(ctx context.Context, p *models.Paper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkLeaf(ctx, tx, p.CategoryID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE papers SET
			title = $1, slug = $2, description = $3, category_id = $4, duration = $5,
			year = $6, session = $7, featured = $8, published = $9, keywords = $10,
			meta_title = $11, meta_description = $12, updated_at = NOW()
		WHERE id = $13
	`, p.Title, p.Slug, p.Description, p.CategoryID, p.Duration, p.Year, p.Session,
		p.Featured, p.Published, p.Keywords, p.MetaTitle, p.MetaDescription, p.ID)
	if err != nil {
		return translate("update paper", err, ErrInvalidCategory)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit paper: %w", err)
	}

	s.logInvalidation(ctx, p.ID, "update")
	return nil
}

// Delete removes a paper. Its questions and attempts go with it.
func (s *PaperStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logInvalidation(ctx, id, "delete")
	return nil
}

// Copy duplicates a paper and all of its questions under a new title and
// slug. The copy starts unpublished and not featured.
func (s *PaperStore) Copy(ctx context.Context, id uuid.UUID, title, slug string) (*models.Paper, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var newID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO papers (title, slug, description, category_id, duration, year, session,
		                    featured, published, keywords, meta_title, meta_description)
		SELECT $2, $3, description, category_id, duration, year, session,
		       FALSE, FALSE, keywords, meta_title, meta_description
		FROM papers WHERE id = $1
		RETURNING id
	`, id, title, slug).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate("copy paper", err, nil)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO questions (paper_id, type, question_text, options, correct_answer, explanation, position)
		SELECT $2, type, question_text, options, correct_answer, explanation, position
		FROM questions WHERE paper_id = $1
	`, id, newID); err != nil {
		return nil, fmt.Errorf("copy questions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit copy: %w", err)
	}

	s.logInvalidation(ctx, newID, "create")
	return s.FindByID(ctx, newID)
}

// SetFeatured toggles whether a paper is highlighted on the home page.
func (s *PaperStore) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	return s.setFlag(ctx, id, "featured", featured)
}

// SetPublished shows or hides a paper on the public site.
func (s *PaperStore) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	return s.setFlag(ctx, id, "published", published)
}

func (s *PaperStore) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers SET `+column+` = $1, updated_at = NOW() WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("set paper %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logInvalidation(ctx, id, "update")
	return nil
}

// Count returns the total number of papers.
func (s *PaperStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

// CountPublishedByCategory returns the number of published papers attached
// directly to each category. Categories without papers are absent.
func (s *PaperStore) CountPublishedByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, COUNT(*) FROM papers
		WHERE published
		GROUP BY category_id
	`)
	if err != nil {
		return nil, fmt.Errorf("count papers by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan paper count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *PaperStore) logInvalidation(ctx context.Context, id uuid.UUID, action string) {
	if s.cacheLog != nil {
		s.cacheLog.Log(ctx, EntityPaper, id, action)
	}
}
