package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"prepify/internal/models"
	"prepify/internal/slug"
)

//go:embed seeddata/catalog.yaml
var catalogYAML []byte

// Catalog is the demo data set: users plus a category tree with papers and
// questions hanging off its leaves.
type Catalog struct {
	Users      []SeedUser     `yaml:"users"`
	Categories []SeedCategory `yaml:"categories"`
}

// SeedUser is a user entry of the catalog.
type SeedUser struct {
	Name  string      `yaml:"name"`
	Email string      `yaml:"email"`
	Role  models.Role `yaml:"role"`
}

// SeedCategory is a category entry. Slug defaults to the slugified name.
type SeedCategory struct {
	Name          string         `yaml:"name"`
	Slug          string         `yaml:"slug"`
	Description   string         `yaml:"description"`
	Featured      bool           `yaml:"featured"`
	Subcategories []SeedCategory `yaml:"subcategories"`
	Papers        []SeedPaper    `yaml:"papers"`
}

// SeedPaper is a paper entry. Slug defaults to the generated paper slug.
type SeedPaper struct {
	Title       string         `yaml:"title"`
	Slug        string         `yaml:"slug"`
	Description string         `yaml:"description"`
	Duration    int            `yaml:"duration"`
	Year        *int           `yaml:"year"`
	Session     *string        `yaml:"session"`
	Featured    bool           `yaml:"featured"`
	Questions   []SeedQuestion `yaml:"questions"`
}

// SeedQuestion is a question entry.
type SeedQuestion struct {
	Type        models.QuestionType `yaml:"type"`
	Text        string              `yaml:"text"`
	Options     []string            `yaml:"options"`
	Answer      []string            `yaml:"answer"`
	Explanation string              `yaml:"explanation"`
}

// LoadCatalog parses the embedded demo catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes a YAML catalog and checks that papers only sit on
// leaf categories and every question has an answer.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := checkCategories(c.Categories); err != nil {
		return nil, err
	}
	return &c, nil
}

func checkCategories(cats []SeedCategory) error {
	for _, c := range cats {
		if c.Name == "" {
			return fmt.Errorf("catalog: category without name")
		}
		if len(c.Subcategories) > 0 && len(c.Papers) > 0 {
			return fmt.Errorf("catalog: %q has sub-categories and papers; papers belong on leaf categories", c.Name)
		}
		for _, p := range c.Papers {
			if p.Duration <= 0 {
				return fmt.Errorf("catalog: paper %q needs a positive duration", p.Title)
			}
			for i, q := range p.Questions {
				if !q.Type.Valid() || len(q.Answer) == 0 {
					return fmt.Errorf("catalog: paper %q question %d is incomplete", p.Title, i+1)
				}
			}
		}
		if err := checkCategories(c.Subcategories); err != nil {
			return err
		}
	}
	return nil
}

// Seed populates an empty database with the embedded demo catalog. Users
// and the category tree are seeded independently; each part is skipped if
// its table already has rows.
func Seed(ctx context.Context, db *sql.DB) error {
	catalog, err := LoadCatalog()
	if err != nil {
		return err
	}
	return SeedCatalog(ctx, db, catalog)
}

// SeedCatalog writes catalog in one transaction.
func SeedCatalog(ctx context.Context, db *sql.DB, catalog *Catalog) error {
	var users, categories int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&categories); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if users > 0 && categories > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	if users == 0 {
		for _, u := range catalog.Users {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO users (name, email, role) VALUES ($1, $2, $3)`,
				u.Name, u.Email, u.Role,
			); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Email, err)
			}
		}
	}

	var counts seedCounts
	if categories == 0 {
		if err := seedCategories(ctx, tx, catalog.Categories, nil, "", &counts); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded",
		"users", len(catalog.Users)*boolInt(users == 0),
		"categories", counts.categories,
		"papers", counts.papers,
		"questions", counts.questions,
	)
	return nil
}

type seedCounts struct {
	categories, papers, questions int
}

func seedCategories(ctx context.Context, tx *sql.Tx, cats []SeedCategory, parentID *uuid.UUID, parentPath string, n *seedCounts) error {
	for _, c := range cats {
		local := c.Slug
		if local == "" {
			local = slug.Generate(c.Name)
		}

		var id uuid.UUID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO categories (name, slug, description, parent_id, featured)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, c.Name, local, nullString(c.Description), parentID, c.Featured).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
		n.categories++

		path := slug.Join(parentPath, local)
		for _, p := range c.Papers {
			if err := seedPaper(ctx, tx, p, id, path, n); err != nil {
				return err
			}
		}
		if err := seedCategories(ctx, tx, c.Subcategories, &id, path, n); err != nil {
			return err
		}
	}
	return nil
}

func seedPaper(ctx context.Context, tx *sql.Tx, p SeedPaper, categoryID uuid.UUID, categoryPath string, n *seedCounts) error {
	paperSlug := p.Slug
	if paperSlug == "" {
		paperSlug = slug.Paper(categoryPath, p.Title, p.Year, p.Session)
	}

	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO papers (title, slug, description, category_id, duration, year, session, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.Title, paperSlug, p.Description, categoryID, p.Duration, p.Year, p.Session, p.Featured).Scan(&id)
	if err != nil {
		return fmt.Errorf("seed paper %s: %w", p.Title, err)
	}
	n.papers++

	for i, q := range p.Questions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (paper_id, type, question_text, options, correct_answer, explanation, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, q.Type, q.Text, models.StringList(q.Options), models.StringList(q.Answer),
			nullString(q.Explanation), i+1)
		if err != nil {
			return fmt.Errorf("seed question %d of %s: %w", i+1, p.Title, err)
		}
		n.questions++
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
