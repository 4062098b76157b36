package handlers

import (
	"context"

	"github.com/google/uuid"

	"prepify/internal/ai"
	"prepify/internal/models"
	"prepify/internal/session"
	"prepify/internal/store"
)

// Categories is the category persistence used by the handlers.
type Categories interface {
	Tree(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
}

// Papers is the paper persistence used by the handlers.
type Papers interface {
	List(ctx context.Context) ([]models.Paper, error)
	ListPublished(ctx context.Context) ([]models.Paper, error)
	ListFeatured(ctx context.Context, limit int) ([]models.Paper, error)
	ListByCategories(ctx context.Context, ids []uuid.UUID, publishedOnly bool) ([]models.Paper, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Paper, error)
	FindBySlug(ctx context.Context, slug string) (*models.Paper, error)
	Create(ctx context.Context, p *models.Paper) (*models.Paper, error)
	Update(ctx context.Context, p *models.Paper) error
	Delete(ctx context.Context, id uuid.UUID) error
	Copy(ctx context.Context, id uuid.UUID, title, slug string) (*models.Paper, error)
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	Count(ctx context.Context) (int, error)
	CountPublishedByCategory(ctx context.Context) (map[uuid.UUID]int, error)
}

// Questions is the question persistence used by the handlers.
type Questions interface {
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]models.Question, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	Create(ctx context.Context, q *models.Question) (*models.Question, error)
	Update(ctx context.Context, q *models.Question) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

// Attempts stores graded test attempts.
type Attempts interface {
	Create(ctx context.Context, r *models.TestResult) (*models.TestResult, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TestResult, error)
}

// Users lists site members.
type Users interface {
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int, error)
}

// CacheLog reads the cache invalidation audit trail.
type CacheLog interface {
	RecentEntries(ctx context.Context, limit int) ([]store.CacheLogEntry, error)
}

// PageCache stores rendered public pages.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
	Invalidate(ctx context.Context, keys ...string)
	InvalidateAll(ctx context.Context)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// Assistant runs the AI content flows.
type Assistant interface {
	GenerateDescription(ctx context.Context, name string) (string, error)
	GeneratePaperDescription(ctx context.Context, title string) (string, error)
	GenerateSEODetails(ctx context.Context, name, description string) (*ai.SEODetails, error)
	GeneratePaperSEODetails(ctx context.Context, title, description, categoryPath string, year *int) (*ai.SEODetails, error)
	PersonalizedFeedback(ctx context.Context, in ai.FeedbackInput) (*ai.Feedback, error)
	RecommendResources(ctx context.Context, performance, weakAreas string) (string, error)
}

// Providers switches between configured AI providers.
type Providers interface {
	SetActive(name string) error
	ActiveName() string
	Enabled() bool
}

// AttemptRecorder remembers the latest attempt of a visitor.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, data *session.Data, attemptID uuid.UUID) error
}
