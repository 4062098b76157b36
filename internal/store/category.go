// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"prepify/internal/models"
	"prepify/internal/tree"
)

// SnapshotCache caches the flat category record list.
type SnapshotCache interface {
	Get(ctx context.Context) ([]models.Category, bool)
	Set(ctx context.Context, records []models.Category)
	Invalidate(ctx context.Context)
}

// CategoryStore manages categories in the database. Reads go through the
// snapshot cache; every write validates the resulting graph and drops the
// cached snapshot.
type CategoryStore struct {
	db       *sql.DB
	cache    SnapshotCache
	cacheLog *CacheLogStore
}

// NewCategoryStore returns a new CategoryStore. cache and cacheLog may be
// nil, in which case every read hits the database and nothing is logged.
func NewCategoryStore(db *sql.DB, cache SnapshotCache, cacheLog *CacheLogStore) *CategoryStore {
	return &CategoryStore{db: db, cache: cache, cacheLog: cacheLog}
}

const categoryColumns = `id, name, slug, description, parent_id, featured, published,
	meta_title, meta_description, keywords, created_at, updated_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID,
		&c.Featured, &c.Published,
		&c.MetaTitle, &c.MetaDescription, &c.Keywords,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func loadCategories(ctx context.Context, q querier) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Snapshot returns every category record, validated for duplicate ids and
// parent cycles. The result is served from the cache when possible.
func (s *CategoryStore) Snapshot(ctx context.Context) ([]models.Category, error) {
	if s.cache != nil {
		if records, ok := s.cache.Get(ctx); ok {
			return records, nil
		}
	}

	records, err := loadCategories(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if err := tree.Validate(records); err != nil {
		return nil, fmt.Errorf("category snapshot: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, records)
	}
	return records, nil
}

// Tree returns the category forest built from the current snapshot.
func (s *CategoryStore) Tree(ctx context.Context) ([]models.Category, error) {
	records, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Build(records), nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category and returns it. A zero ID is replaced by a
// fresh one.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	var created *models.Category
	err := s.write(ctx, c, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO categories (id, name, slug, description, parent_id, featured, published,
			                        meta_title, meta_description, keywords)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+categoryColumns,
			c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.Featured, c.Published,
			c.MetaTitle, c.MetaDescription, c.Keywords,
		)
		var err error
		created, err = scanCategory(row)
		if err != nil {
			return translate("create category", err, ErrInvalidParent)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, created.ID, "create")
	return created, nil
}

// Update modifies an existing category. The parent may not be the
// category itself or any of its descendants.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	err := s.write(ctx, c, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE categories SET
				name = $1, slug = $2, description = $3, parent_id = $4,
				featured = $5, published = $6, meta_title = $7,
				meta_description = $8, keywords = $9, updated_at = NOW()
			WHERE id = $10
		`, c.Name, c.Slug, c.Description, c.ParentID, c.Featured, c.Published,
			c.MetaTitle, c.MetaDescription, c.Keywords, c.ID)
		if err != nil {
			if pgCode(err) == pgCheckViolation {
				return ErrInvalidParent
			}
			return translate("update category", err, ErrInvalidParent)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, c.ID, "update")
	return nil
}

// write runs fn inside a transaction that holds an exclusive lock on the
// categories table, after checking that the record set with c applied is
// still a valid forest.
func (s *CategoryStore) write(ctx context.Context, c *models.Category, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE categories IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}

	records, err := loadCategories(ctx, tx)
	if err != nil {
		return err
	}
	if err := checkParent(ctx, tx, records, c); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// checkParent enforces the parent rules for c against the current records.
func checkParent(ctx context.Context, q querier, records []models.Category, c *models.Category) error {
	if c.ParentID != nil {
		if *c.ParentID == c.ID {
			return ErrInvalidParent
		}
		forest := tree.Build(records)
		if _, own := tree.DescendantSet(forest, c.ID)[*c.ParentID]; own {
			return ErrInvalidParent
		}
		if tree.FindByID(forest, *c.ParentID) == nil {
			return ErrInvalidParent
		}

		var hasPapers bool
		err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM papers WHERE category_id = $1)`, *c.ParentID,
		).Scan(&hasPapers)
		if err != nil {
			return fmt.Errorf("check parent papers: %w", err)
		}
		if hasPapers {
			return ErrParentHasPapers
		}
	}

	candidate := make([]models.Category, 0, len(records)+1)
	replaced := false
	for _, r := range records {
		if r.ID == c.ID {
			r.ParentID = c.ParentID
			replaced = true
		}
		candidate = append(candidate, r)
	}
	if !replaced {
		candidate = append(candidate, *c)
	}
	return tree.Validate(candidate)
}

// Delete removes a category by ID. Categories that still have
// sub-categories or papers are refused with an *InUseError. The usage check
// and the delete share one transaction under the categories lock, so a
// concurrent child create cannot slip in between.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE categories IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}

	var children, papers int
	err = tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories WHERE parent_id = $1),
			(SELECT COUNT(*) FROM papers WHERE category_id = $1)
	`, id).Scan(&children, &papers)
	if err != nil {
		return fmt.Errorf("check category usage: %w", err)
	}
	if children > 0 || papers > 0 {
		return &InUseError{Subcategories: children, Papers: papers}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return &InUseError{Papers: 1}
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	s.invalidate(ctx, id, "delete")
	return nil
}

// SetFeatured toggles whether a category is highlighted on the home page.
func (s *CategoryStore) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	return s.setFlag(ctx, id, "featured", featured)
}

// SetPublished shows or hides a category and its subtree on the public site.
func (s *CategoryStore) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	return s.setFlag(ctx, id, "published", published)
}

// setFlag updates one boolean column. column is never user input.
func (s *CategoryStore) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET `+column+` = $1, updated_at = NOW() WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("set category %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, id, "update")
	return nil
}

// InvalidateCache drops the cached snapshot without a write.
func (s *CategoryStore) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *CategoryStore) invalidate(ctx context.Context, id uuid.UUID, action string) {
	s.InvalidateCache(ctx)
	if s.cacheLog != nil {
		s.cacheLog.Log(ctx, EntityCategory, id, action)
	}
	slog.Debug("category snapshot invalidated", "category_id", id, "action", action)
}
