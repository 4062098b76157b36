// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"prepify/internal/database"
	"prepify/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses the same environment variables and defaults as config.Load.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "prepify")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "prepify")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// uniq returns a slug-safe suffix so parallel packages sharing the
// database never collide.
func uniq(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// newCategory inserts a category through the store and removes it when
// the test ends.
func newCategory(t *testing.T, s *CategoryStore, db *sql.DB, name string, parent *uuid.UUID) *models.Category {
	t.Helper()
	c, err := s.Create(context.Background(), &models.Category{
		Name:      name,
		Slug:      uniq("cat"),
		ParentID:  parent,
		Published: true,
	})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM papers WHERE category_id = $1", c.ID)
		db.Exec("DELETE FROM categories WHERE id = $1", c.ID)
	})
	return c
}

// newPaper inserts a published paper into category and removes it when
// the test ends.
func newPaper(t *testing.T, s *PaperStore, db *sql.DB, categoryID uuid.UUID, title string) *models.Paper {
	t.Helper()
	p, err := s.Create(context.Background(), &models.Paper{
		Title:      title,
		Slug:       uniq("paper"),
		CategoryID: categoryID,
		Duration:   10,
		Published:  true,
	})
	if err != nil {
		t.Fatalf("create paper %s: %v", title, err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM papers WHERE id = $1", p.ID) })
	return p
}

// lockedChild opens a transaction holding the categories lock, the way a
// category write does, and inserts a child of parentID in it. The caller
// commits; the child is removed when the test ends.
func lockedChild(t *testing.T, db *sql.DB, parentID uuid.UUID) *sql.Tx {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { tx.Rollback() })

	if _, err := tx.Exec(`LOCK TABLE categories IN EXCLUSIVE MODE`); err != nil {
		t.Fatalf("lock categories: %v", err)
	}
	childID := uuid.New()
	if _, err := tx.Exec(`INSERT INTO categories (id, name, slug, parent_id) VALUES ($1, 'Late Child', $2, $3)`,
		childID, uniq("late"), parentID); err != nil {
		t.Fatalf("insert child: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM categories WHERE id = $1", childID) })
	return tx
}

// waitBlocked runs fn in the background, checks that it is still waiting
// after a short pause, then calls release and returns fn's error.
func waitBlocked(t *testing.T, fn func() error, release func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		t.Fatalf("returned %v while the categories lock was held", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("still blocked after the lock was released")
	}
	return nil
}

// memSnapshot is an in-process SnapshotCache that counts calls.
type memSnapshot struct {
	mu          sync.Mutex
	records     []models.Category
	ok          bool
	sets        int
	invalidates int
}

func (m *memSnapshot) Get(context.Context) ([]models.Category, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, m.ok
}

func (m *memSnapshot) Set(_ context.Context, records []models.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records, m.ok = records, true
	m.sets++
}

func (m *memSnapshot) Invalidate(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records, m.ok = nil, false
	m.invalidates++
}
