// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory stores and a shared environment for
// the handler tests. Nothing here needs PostgreSQL or Valkey.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prepify/internal/ai"
	"prepify/internal/engine"
	"prepify/internal/models"
	"prepify/internal/render"
	"prepify/internal/session"
	"prepify/internal/store"
	"prepify/internal/tree"
)

// --- categories ---

type fakeCategories struct {
	mu      sync.Mutex
	records []models.Category
	papers  *fakePapers
	err     error // returned by Create and Update when set
}

func (f *fakeCategories) Tree(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tree.Build(slices.Clone(f.records)), nil
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.records {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *c
	out.ID = uuid.New()
	f.records = append(f.records, out)
	return &out, nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.records {
		if f.records[i].ID == c.ID {
			f.records[i] = *c
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := slices.IndexFunc(f.records, func(c models.Category) bool { return c.ID == id })
	if idx < 0 {
		return store.ErrNotFound
	}
	var inUse store.InUseError
	for _, c := range f.records {
		if c.ParentID != nil && *c.ParentID == id {
			inUse.Subcategories++
		}
	}
	if f.papers != nil {
		for _, p := range f.papers.all() {
			if p.CategoryID == id {
				inUse.Papers++
			}
		}
	}
	if inUse.Subcategories > 0 || inUse.Papers > 0 {
		return &inUse
	}
	f.records = slices.Delete(f.records, idx, idx+1)
	return nil
}

func (f *fakeCategories) SetFeatured(_ context.Context, id uuid.UUID, v bool) error {
	return f.set(id, func(c *models.Category) { c.Featured = v })
}

func (f *fakeCategories) SetPublished(_ context.Context, id uuid.UUID, v bool) error {
	return f.set(id, func(c *models.Category) { c.Published = v })
}

func (f *fakeCategories) set(id uuid.UUID, fn func(*models.Category)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			fn(&f.records[i])
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeCategories) get(id uuid.UUID) models.Category {
	c, _ := f.FindByID(context.Background(), id)
	if c == nil {
		return models.Category{}
	}
	return *c
}

// --- papers ---

type fakePapers struct {
	mu     sync.Mutex
	items  []models.Paper
	copies []string // slugs passed to Copy
}

func (f *fakePapers) all() []models.Paper {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

func (f *fakePapers) filter(keep func(models.Paper) bool) []models.Paper {
	var out []models.Paper
	for _, p := range f.all() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakePapers) List(_ context.Context) ([]models.Paper, error) {
	return f.all(), nil
}

func (f *fakePapers) ListPublished(_ context.Context) ([]models.Paper, error) {
	return f.filter(func(p models.Paper) bool { return p.Published }), nil
}

func (f *fakePapers) ListFeatured(_ context.Context, limit int) ([]models.Paper, error) {
	out := f.filter(func(p models.Paper) bool { return p.Published && p.Featured })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePapers) ListByCategories(_ context.Context, ids []uuid.UUID, publishedOnly bool) ([]models.Paper, error) {
	return f.filter(func(p models.Paper) bool {
		return slices.Contains(ids, p.CategoryID) && (p.Published || !publishedOnly)
	}), nil
}

func (f *fakePapers) FindByID(_ context.Context, id uuid.UUID) (*models.Paper, error) {
	for _, p := range f.all() {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePapers) FindBySlug(_ context.Context, slug string) (*models.Paper, error) {
	for _, p := range f.all() {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePapers) slugTaken(slug string, except uuid.UUID) bool {
	for _, p := range f.items {
		if p.Slug == slug && p.ID != except {
			return true
		}
	}
	return false
}

func (f *fakePapers) Create(_ context.Context, p *models.Paper) (*models.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slugTaken(p.Slug, uuid.Nil) {
		return nil, store.ErrSlugTaken
	}
	out := *p
	out.ID = uuid.New()
	f.items = append(f.items, out)
	return &out, nil
}

func (f *fakePapers) Update(_ context.Context, p *models.Paper) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slugTaken(p.Slug, p.ID) {
		return store.ErrSlugTaken
	}
	for i := range f.items {
		if f.items[i].ID == p.ID {
			f.items[i] = *p
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakePapers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := slices.IndexFunc(f.items, func(p models.Paper) bool { return p.ID == id })
	if idx < 0 {
		return store.ErrNotFound
	}
	f.items = slices.Delete(f.items, idx, idx+1)
	return nil
}

func (f *fakePapers) Copy(_ context.Context, id uuid.UUID, title, slug string) (*models.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, slug)
	if f.slugTaken(slug, uuid.Nil) {
		return nil, store.ErrSlugTaken
	}
	for _, p := range f.items {
		if p.ID == id {
			p.ID = uuid.New()
			p.Title, p.Slug = title, slug
			p.Featured, p.Published = false, false
			f.items = append(f.items, p)
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakePapers) SetFeatured(_ context.Context, id uuid.UUID, v bool) error {
	return f.set(id, func(p *models.Paper) { p.Featured = v })
}

func (f *fakePapers) SetPublished(_ context.Context, id uuid.UUID, v bool) error {
	return f.set(id, func(p *models.Paper) { p.Published = v })
}

func (f *fakePapers) set(id uuid.UUID, fn func(*models.Paper)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			fn(&f.items[i])
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakePapers) Count(_ context.Context) (int, error) {
	return len(f.all()), nil
}

func (f *fakePapers) CountPublishedByCategory(_ context.Context) (map[uuid.UUID]int, error) {
	counts := map[uuid.UUID]int{}
	for _, p := range f.all() {
		if p.Published {
			counts[p.CategoryID]++
		}
	}
	return counts, nil
}

// --- questions ---

type fakeQuestions struct {
	mu    sync.Mutex
	items []models.Question
}

func (f *fakeQuestions) ListByPaper(_ context.Context, paperID uuid.UUID) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Question{}
	for _, q := range f.items {
		if q.PaperID == paperID {
			out = append(out, q)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Question) int { return a.Position - b.Position })
	return out, nil
}

func (f *fakeQuestions) FindByID(_ context.Context, id uuid.UUID) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.items {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, nil
}

func (f *fakeQuestions) Create(_ context.Context, q *models.Question) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *q
	out.ID = uuid.New()
	if out.Position == 0 {
		for _, o := range f.items {
			if o.PaperID == q.PaperID && o.Position >= out.Position {
				out.Position = o.Position + 1
			}
		}
	}
	f.items = append(f.items, out)
	return &out, nil
}

func (f *fakeQuestions) Update(_ context.Context, q *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == q.ID {
			f.items[i] = *q
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeQuestions) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := slices.IndexFunc(f.items, func(q models.Question) bool { return q.ID == id })
	if idx < 0 {
		return store.ErrNotFound
	}
	f.items = slices.Delete(f.items, idx, idx+1)
	return nil
}

func (f *fakeQuestions) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

// --- attempts, users, cache log ---

type fakeAttempts struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.TestResult
}

func (f *fakeAttempts) Create(_ context.Context, r *models.TestResult) (*models.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *r
	out.ID = uuid.New()
	out.CompletedAt = time.Now()
	if f.items == nil {
		f.items = map[uuid.UUID]models.TestResult{}
	}
	f.items[out.ID] = out
	return &out, nil
}

func (f *fakeAttempts) FindByID(_ context.Context, id uuid.UUID) (*models.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type fakeUsers struct {
	items []models.User
}

func (f *fakeUsers) List(_ context.Context) ([]models.User, error) { return f.items, nil }
func (f *fakeUsers) Count(_ context.Context) (int, error)          { return len(f.items), nil }

type fakeCacheLog struct {
	entries []store.CacheLogEntry
}

func (f *fakeCacheLog) RecentEntries(_ context.Context, limit int) ([]store.CacheLogEntry, error) {
	return f.entries[:min(limit, len(f.entries))], nil
}

// --- page cache ---

type memPageCache struct {
	mu    sync.Mutex
	pages map[string][]byte
}

func newMemPageCache() *memPageCache {
	return &memPageCache{pages: map[string][]byte{}}
}

func (c *memPageCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[key]
	return b, ok
}

func (c *memPageCache) Set(_ context.Context, key string, html []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = html
}

func (c *memPageCache) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.pages, k)
	}
}

func (c *memPageCache) InvalidateAll(ctx context.Context) {
	c.InvalidatePrefix(ctx, "")
}

func (c *memPageCache) InvalidatePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.pages {
		if strings.HasPrefix(k, prefix) {
			delete(c.pages, k)
		}
	}
}

func (c *memPageCache) has(key string) bool {
	_, ok := c.Get(context.Background(), key)
	return ok
}

// --- AI ---

type fakeAssistant struct {
	mu          sync.Mutex
	text        string
	seo         *ai.SEODetails
	feedback    *ai.Feedback
	err         error
	calls       []string
	feedbackIn  ai.FeedbackInput
	performance string
	weakAreas   string
	seoPath     string
	seoYear     *int
}

func (f *fakeAssistant) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAssistant) GenerateDescription(_ context.Context, name string) (string, error) {
	f.record("description:" + name)
	return f.text, f.err
}

func (f *fakeAssistant) GeneratePaperDescription(_ context.Context, title string) (string, error) {
	f.record("paper-description:" + title)
	return f.text, f.err
}

func (f *fakeAssistant) GenerateSEODetails(_ context.Context, name, _ string) (*ai.SEODetails, error) {
	f.record("seo:" + name)
	return f.seo, f.err
}

func (f *fakeAssistant) GeneratePaperSEODetails(_ context.Context, title, _, categoryPath string, year *int) (*ai.SEODetails, error) {
	f.record("paper-seo:" + title)
	f.seoPath, f.seoYear = categoryPath, year
	return f.seo, f.err
}

func (f *fakeAssistant) PersonalizedFeedback(_ context.Context, in ai.FeedbackInput) (*ai.Feedback, error) {
	f.record("feedback")
	f.feedbackIn = in
	return f.feedback, f.err
}

func (f *fakeAssistant) RecommendResources(_ context.Context, performance, weakAreas string) (string, error) {
	f.record("recommend")
	f.performance, f.weakAreas = performance, weakAreas
	return f.text, f.err
}

type fakeProviders struct {
	active    string
	available []string
}

func (f *fakeProviders) SetActive(name string) error {
	if !slices.Contains(f.available, name) {
		return errors.New("provider not configured")
	}
	f.active = name
	return nil
}

func (f *fakeProviders) ActiveName() string { return f.active }
func (f *fakeProviders) Enabled() bool      { return slices.Contains(f.available, f.active) }

type fakeRecorder struct {
	recorded []uuid.UUID
}

func (f *fakeRecorder) RecordAttempt(_ context.Context, data *session.Data, id uuid.UUID) error {
	data.LatestAttemptID = &id
	f.recorded = append(f.recorded, id)
	return nil
}

// --- environment ---

// testEnv wires both handler groups to the fakes and seeds a small catalog:
//
//	Science (featured)
//	  Physics: "Mechanics" (published, featured, 3 questions)
//	  Chemistry (unpublished): "Organic" (published, featured)
//	History (empty)
type testEnv struct {
	Admin      *Admin
	Public     *Public
	Categories *fakeCategories
	Papers     *fakePapers
	Questions  *fakeQuestions
	Attempts   *fakeAttempts
	Pages      *memPageCache
	Assistant  *fakeAssistant
	Providers  *fakeProviders
	Recorder   *fakeRecorder
	CacheLog   *fakeCacheLog

	Science, Physics, Chemistry, History models.Category
	Mechanics, Organic                   models.Paper
	MechanicsQuestions                   []models.Question
	Now                                  time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		Papers:    &fakePapers{},
		Questions: &fakeQuestions{},
		Attempts:  &fakeAttempts{},
		Pages:     newMemPageCache(),
		Assistant: &fakeAssistant{text: "A generated text."},
		Providers: &fakeProviders{active: ai.OpenAI, available: []string{ai.OpenAI, ai.Claude}},
		Recorder:  &fakeRecorder{},
		CacheLog:  &fakeCacheLog{},
		Now:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	env.Categories = &fakeCategories{papers: env.Papers}

	desc := "Forces, motion and energy."
	env.Science = models.Category{ID: uuid.New(), Name: "Science", Slug: "science", Featured: true, Published: true, Description: &desc}
	env.Physics = models.Category{ID: uuid.New(), Name: "Physics", Slug: "physics", ParentID: &env.Science.ID, Published: true}
	env.Chemistry = models.Category{ID: uuid.New(), Name: "Chemistry", Slug: "chemistry", ParentID: &env.Science.ID}
	env.History = models.Category{ID: uuid.New(), Name: "History", Slug: "history", Published: true}
	env.Categories.records = []models.Category{env.Science, env.Physics, env.Chemistry, env.History}

	env.Mechanics = models.Paper{
		ID: uuid.New(), Title: "Mechanics", Slug: "mechanics", Description: "Kinematics and dynamics practice.",
		CategoryID: env.Physics.ID, Duration: 45, Published: true, Featured: true, QuestionCount: 3,
	}
	env.Organic = models.Paper{
		ID: uuid.New(), Title: "Organic", Slug: "organic", Description: "Carbon compounds practice.",
		CategoryID: env.Chemistry.ID, Duration: 30, Published: true, Featured: true,
	}
	env.Papers.items = []models.Paper{env.Mechanics, env.Organic}

	why := "Because **Newton** said so."
	env.MechanicsQuestions = []models.Question{
		{ID: uuid.New(), PaperID: env.Mechanics.ID, Type: models.QuestionTypeMCQ, QuestionText: "Who wrote the laws of motion?",
			Options: models.StringList{"Newton", "Einstein"}, CorrectAnswer: models.StringList{"Newton"}, Explanation: &why, Position: 1},
		{ID: uuid.New(), PaperID: env.Mechanics.ID, Type: models.QuestionTypeShortAnswer, QuestionText: "Unit of force?",
			CorrectAnswer: models.StringList{"newton", "N"}, Position: 2},
		{ID: uuid.New(), PaperID: env.Mechanics.ID, Type: models.QuestionTypeMCQ, QuestionText: "Acceleration due to gravity?",
			Options: models.StringList{"9.8 m/s2", "1 m/s2"}, CorrectAnswer: models.StringList{"9.8 m/s2"}, Position: 3},
	}
	env.Questions.items = slices.Clone(env.MechanicsQuestions)

	aiCfg := &AIConfig{
		ActiveProvider: ai.OpenAI,
		Providers: []AIProviderInfo{
			{Name: ai.OpenAI, Label: "OpenAI", HasKey: true, Active: true, Model: "gpt-4o-mini", KeyEnvVar: "OPENAI_API_KEY"},
			{Name: ai.Claude, Label: "Claude", HasKey: true, Model: "claude-haiku", KeyEnvVar: "CLAUDE_API_KEY"},
			{Name: ai.Gemini, Label: "Gemini", KeyEnvVar: "GEMINI_API_KEY"},
		},
	}
	users := &fakeUsers{items: []models.User{{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}}}

	env.Admin = NewAdmin(renderer, env.Categories, env.Papers, env.Questions, users, env.CacheLog, env.Pages, env.Assistant, env.Providers, aiCfg)
	env.Public = NewPublic(engine.New(), env.Categories, env.Papers, env.Questions, env.Attempts, env.Pages, env.Assistant, env.Providers, env.Recorder)
	env.Public.now = func() time.Time { return env.Now }
	return env
}

// withParams attaches chi URL parameters to req.
func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// postForm builds a urlencoded POST request.
func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serveHandler(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, status int, location string) {
	t.Helper()
	assertStatus(t, rec, status)
	if got := rec.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body missing %q", w)
		}
	}
}
