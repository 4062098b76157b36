// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prepify/internal/ai"
	"prepify/internal/cache"
	"prepify/internal/engine"
	"prepify/internal/exam"
	"prepify/internal/logger"
	"prepify/internal/markdown"
	"prepify/internal/middleware"
	"prepify/internal/models"
	"prepify/internal/tree"
)

// featuredPaperLimit caps the featured papers on the home page.
const featuredPaperLimit = 6

// maxAttemptSeconds bounds the elapsed time accepted from a test form.
const maxAttemptSeconds = 24 * 60 * 60

const homeDescription = "Practice papers organised by subject, with worked solutions and timed tests."

var errPageNotFound = errors.New("page not found")

// redirectTo is returned by page builders that want the visitor sent to a
// canonical URL instead.
type redirectTo string

func (r redirectTo) Error() string { return "redirect to " + string(r) }

// Public groups the handlers of the public site. Catalog pages go through
// the Valkey page cache; test and results pages are always rendered fresh.
type Public struct {
	engine     *engine.Engine
	categories Categories
	papers     Papers
	questions  Questions
	attempts   Attempts
	pageCache  PageCache
	assistant  Assistant
	providers  Providers
	recorder   AttemptRecorder
	now        func() time.Time
}

// NewPublic creates a new Public handler group. pageCache, assistant,
// providers and recorder may be nil.
func NewPublic(eng *engine.Engine, categories Categories, papers Papers, questions Questions, attempts Attempts, pageCache PageCache, assistant Assistant, providers Providers, recorder AttemptRecorder) *Public {
	return &Public{
		engine:     eng,
		categories: categories,
		papers:     papers,
		questions:  questions,
		attempts:   attempts,
		pageCache:  pageCache,
		assistant:  assistant,
		providers:  providers,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Home renders the featured categories and papers.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	p.serveCached(w, r, cache.HomeKey(), func(ctx context.Context) ([]byte, error) {
		published, counts, err := p.catalog(ctx)
		if err != nil {
			return nil, err
		}

		var featured []engine.CategoryCard
		for _, flat := range tree.Flatten(published) {
			if node := tree.FindByID(published, flat.ID); node != nil && node.Featured {
				featured = append(featured, categoryCard(published, node, counts, false))
			}
		}

		papers, err := p.papers.ListFeatured(ctx, featuredPaperLimit)
		if err != nil {
			return nil, err
		}

		return p.engine.Render("home", engine.Meta{Description: homeDescription}, engine.HomeView{
			Categories: featured,
			Papers:     visiblePapers(published, papers),
		})
	})
}

// Categories renders the whole published category tree.
func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	p.serveCached(w, r, cache.CategoriesKey(), func(ctx context.Context) ([]byte, error) {
		published, counts, err := p.catalog(ctx)
		if err != nil {
			return nil, err
		}
		nodes := make([]engine.CategoryCard, 0, len(published))
		for i := range published {
			nodes = append(nodes, categoryCard(published, &published[i], counts, true))
		}
		return p.engine.Render("categories", engine.Meta{
			Title:       "Categories",
			Description: "Browse every subject and level of the practice paper catalog.",
		}, engine.CategoriesView{Nodes: nodes})
	})
}

// Category renders one category addressed by its slug path. Paths that
// resolve to a category through a shortcut are redirected to the
// canonical path.
func (p *Public) Category(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" {
		http.Redirect(w, r, "/categories", http.StatusMovedPermanently)
		return
	}

	p.serveCached(w, r, cache.CategoryKey(path), func(ctx context.Context) ([]byte, error) {
		published, counts, err := p.catalog(ctx)
		if err != nil {
			return nil, err
		}
		node := tree.ResolvePath(published, strings.Split(path, "/"))
		if node == nil {
			return nil, errPageNotFound
		}
		if canonical := tree.SlugPath(published, node.ID); canonical != path {
			return nil, redirectTo(engine.CategoryURL(canonical))
		}

		subs := make([]engine.CategoryCard, 0, len(node.Subcategories))
		for i := range node.Subcategories {
			subs = append(subs, categoryCard(published, &node.Subcategories[i], counts, false))
		}
		papers, err := p.papers.ListByCategories(ctx, []uuid.UUID{node.ID}, true)
		if err != nil {
			return nil, err
		}

		crumbs := breadcrumbs(published, node.ID)
		return p.engine.Render("category", engine.Meta{
			Title:       node.PageTitle(),
			Description: node.PageDescription(),
			Keywords:    deref(node.Keywords),
		}, engine.CategoryView{
			Category:      node.Summary(),
			Breadcrumbs:   crumbs[:len(crumbs)-1],
			Subcategories: subs,
			Papers:        papers,
		})
	})
}

// Papers lists every visible paper.
func (p *Public) Papers(w http.ResponseWriter, r *http.Request) {
	p.serveCached(w, r, cache.PapersKey(), func(ctx context.Context) ([]byte, error) {
		published, _, err := p.catalog(ctx)
		if err != nil {
			return nil, err
		}
		papers, err := p.papers.ListPublished(ctx)
		if err != nil {
			return nil, err
		}
		return p.engine.Render("papers", engine.Meta{
			Title:       "Papers",
			Description: "Every published practice paper.",
		}, engine.PapersView{Papers: visiblePapers(published, papers)})
	})
}

// Paper renders one page of a solved paper, exam.QuestionsPerPage
// questions at a time.
func (p *Public) Paper(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	page := 1
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = n
	}

	p.serveCached(w, r, cache.PaperKey(slug, page), func(ctx context.Context) ([]byte, error) {
		paper, published, err := p.visiblePaper(ctx, slug)
		if err != nil {
			return nil, err
		}
		qs, err := p.questions.ListByPaper(ctx, paper.ID)
		if err != nil {
			return nil, err
		}

		pg := exam.Paginate(qs, page, exam.QuestionsPerPage)
		if pg.Number != page {
			return nil, redirectTo("/papers/" + slug + "?page=" + strconv.Itoa(pg.Number))
		}
		items := make([]engine.SolvedQuestion, 0, len(pg.Questions))
		for i, q := range pg.Questions {
			items = append(items, engine.SolvedQuestion{
				Number:      pg.Offset + i + 1,
				Question:    q,
				Explanation: markdown.Render(deref(q.Explanation)),
			})
		}

		return p.engine.Render("paper", engine.Meta{
			Title:       paper.PageTitle(),
			Description: paper.PageDescription(),
			Keywords:    deref(paper.Keywords),
		}, engine.PaperView{
			Paper:       *paper,
			Breadcrumbs: breadcrumbs(published, paper.CategoryID),
			Page:        pg,
			Items:       items,
		})
	})
}

// TestForm renders the timed test of a paper. The page carries a CSRF
// token and the start time, so it is never cached.
func (p *Public) TestForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paper, qs, ok := p.loadTest(w, r)
	if !ok {
		return
	}

	token := middleware.CSRFTokenFromCtx(ctx)
	view := engine.TestView{
		Paper:     *paper,
		Questions: make([]engine.SolvedQuestion, 0, len(qs)),
		StartedAt: p.now().Unix(),
		CSRFToken: token,
	}
	for i, q := range qs {
		view.Questions = append(view.Questions, engine.SolvedQuestion{Number: i + 1, Question: q})
	}
	if len(qs) == 0 {
		view.Error = "This paper has no questions yet."
	}

	p.renderPage(w, r, http.StatusOK, "test", engine.Meta{
		Title:       "Test: " + paper.Title,
		Description: paper.PageDescription(),
		CSRFToken:   token,
	}, view)
}

// TestSubmit grades a submitted test, stores the attempt and sends the
// visitor to its results page.
func (p *Public) TestSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	paper, qs, ok := p.loadTest(w, r)
	if !ok {
		return
	}
	if len(qs) == 0 {
		http.Redirect(w, r, "/test/"+paper.Slug, http.StatusSeeOther)
		return
	}

	answers := make(map[uuid.UUID]string, len(qs))
	for _, q := range qs {
		answers[q.ID] = r.PostFormValue("q_" + q.ID.String())
	}
	result := exam.Grade(paper.ID, qs, answers, p.elapsed(r.PostFormValue("started_at")))

	visitor := middleware.VisitorFromCtx(ctx)
	if visitor != nil {
		id := visitor.VisitorID
		result.VisitorID = &id
	}

	saved, err := p.attempts.Create(ctx, result)
	if err != nil {
		log.Error("store attempt failed", "paper_id", paper.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if visitor != nil && p.recorder != nil {
		if err := p.recorder.RecordAttempt(ctx, visitor, saved.ID); err != nil {
			log.Warn("record attempt in session failed", "attempt_id", saved.ID, "error", err)
		}
	}

	log.Info("test submitted", "paper_id", paper.ID, "attempt_id", saved.ID,
		"score", saved.Score, "total", saved.TotalQuestions)
	http.Redirect(w, r, "/results/"+saved.ID.String(), http.StatusSeeOther)
}

// Results renders the graded review of an attempt.
func (p *Public) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, paper, qs, ok := p.loadAttempt(w, r)
	if !ok {
		return
	}

	view := engine.ResultsView{
		Result:    result,
		Paper:     *paper,
		Summary:   exam.PerformanceSummary(result),
		AIEnabled: p.aiEnabled(),
	}
	for _, q := range qs {
		ans := result.AnswerFor(q.ID)
		if ans == nil {
			// Added after the attempt was taken.
			continue
		}
		view.Items = append(view.Items, engine.ResultItem{
			Number:      len(view.Items) + 1,
			Question:    q,
			Answer:      *ans,
			Explanation: markdown.Render(deref(q.Explanation)),
		})
	}

	p.renderPage(w, r, http.StatusOK, "results", engine.Meta{
		Title:     "Results: " + paper.Title,
		CSRFToken: middleware.CSRFTokenFromCtx(ctx),
	}, view)
}

// ResultFeedback returns the AI explanation of one incorrect answer as an
// HTMX fragment.
func (p *Public) ResultFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !p.aiEnabled() {
		p.renderFragment(w, r, "feedback", engine.FeedbackView{Error: "AI features are not available."})
		return
	}
	result, paper, qs, ok := p.loadAttempt(w, r)
	if !ok {
		return
	}
	qid, ok := urlID(w, r, "qid")
	if !ok {
		return
	}

	var q *models.Question
	for i := range qs {
		if qs[i].ID == qid {
			q = &qs[i]
			break
		}
	}
	ans := result.AnswerFor(qid)
	if q == nil || ans == nil {
		http.NotFound(w, r)
		return
	}

	var path []models.Category
	if forest, err := p.categories.Tree(ctx); err != nil {
		logger.FromContext(ctx).Warn("load category tree failed", "error", err)
	} else {
		path = tree.PathTo(forest, paper.CategoryID)
	}
	category, subcategory := exam.FeedbackCategories(path)

	fb, err := p.assistant.PersonalizedFeedback(ctx, ai.FeedbackInput{
		Question:      q.QuestionText,
		UserAnswer:    ans.SelectedOption,
		CorrectAnswer: exam.CorrectAnswerText(q),
		Category:      category,
		Subcategory:   subcategory,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("ai feedback failed", "attempt_id", result.ID, "question_id", qid, "error", err)
		p.renderFragment(w, r, "feedback", engine.FeedbackView{Error: aiErrorMessage(err)})
		return
	}
	p.renderFragment(w, r, "feedback", engine.FeedbackView{Feedback: fb.Feedback, Suggestions: fb.Suggestions})
}

// ResultRecommendations returns AI study recommendations for an attempt
// as an HTMX fragment.
func (p *Public) ResultRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !p.aiEnabled() {
		p.renderFragment(w, r, "recommendations", engine.RecommendationsView{Error: "AI features are not available."})
		return
	}
	result, _, qs, ok := p.loadAttempt(w, r)
	if !ok {
		return
	}

	text, err := p.assistant.RecommendResources(ctx, exam.PerformanceSummary(result), exam.WeakAreas(result, qs))
	if err != nil {
		logger.FromContext(ctx).Warn("ai recommendations failed", "attempt_id", result.ID, "error", err)
		p.renderFragment(w, r, "recommendations", engine.RecommendationsView{Error: aiErrorMessage(err)})
		return
	}
	p.renderFragment(w, r, "recommendations", engine.RecommendationsView{Text: text})
}

// NotFound renders the public 404 page.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderPage(w, r, http.StatusNotFound, "not_found", engine.Meta{Title: "Page not found"}, nil)
}

// serveCached answers from the page cache or builds, caches and writes
// the page. Not-found pages and redirects are never cached.
func (p *Public) serveCached(w http.ResponseWriter, r *http.Request, key string, build func(ctx context.Context) ([]byte, error)) {
	ctx := r.Context()
	if p.pageCache != nil {
		if body, ok := p.pageCache.Get(ctx, key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeHTML(w, http.StatusOK, body)
			return
		}
	}

	body, err := build(ctx)
	var to redirectTo
	switch {
	case errors.As(err, &to):
		http.Redirect(w, r, string(to), http.StatusMovedPermanently)
		return
	case errors.Is(err, errPageNotFound):
		p.NotFound(w, r)
		return
	case err != nil:
		logger.FromContext(ctx).Error("render public page failed", "key", key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if p.pageCache != nil {
		p.pageCache.Set(ctx, key, body)
	}
	w.Header().Set("X-Cache", "MISS")
	writeHTML(w, http.StatusOK, body)
}

func (p *Public) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, meta engine.Meta, view any) {
	body, err := p.engine.Render(name, meta, view)
	if err != nil {
		logger.FromContext(r.Context()).Error("render page failed", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeHTML(w, status, body)
}

func (p *Public) renderFragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := p.engine.RenderFragment(name, data)
	if err != nil {
		logger.FromContext(r.Context()).Error("render fragment failed", "fragment", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, body)
}

// catalog loads the published category forest and the published paper
// count of each category.
func (p *Public) catalog(ctx context.Context) ([]models.Category, map[uuid.UUID]int, error) {
	forest, err := p.categories.Tree(ctx)
	if err != nil {
		return nil, nil, err
	}
	counts, err := p.papers.CountPublishedByCategory(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tree.Published(forest), counts, nil
}

// visiblePaper finds a published paper whose category is published too.
// It returns errPageNotFound otherwise.
func (p *Public) visiblePaper(ctx context.Context, slug string) (*models.Paper, []models.Category, error) {
	paper, err := p.papers.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if paper == nil || !paper.Published {
		return nil, nil, errPageNotFound
	}
	forest, err := p.categories.Tree(ctx)
	if err != nil {
		return nil, nil, err
	}
	published := tree.Published(forest)
	if tree.FindByID(published, paper.CategoryID) == nil {
		return nil, nil, errPageNotFound
	}
	return paper, published, nil
}

// loadTest resolves the {slug} of a test page and its questions.
func (p *Public) loadTest(w http.ResponseWriter, r *http.Request) (*models.Paper, []models.Question, bool) {
	ctx := r.Context()
	paper, _, err := p.visiblePaper(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, errPageNotFound) {
		p.NotFound(w, r)
		return nil, nil, false
	}
	if err != nil {
		logger.FromContext(ctx).Error("load paper failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	qs, err := p.questions.ListByPaper(ctx, paper.ID)
	if err != nil {
		logger.FromContext(ctx).Error("list questions failed", "paper_id", paper.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return paper, qs, true
}

// loadAttempt resolves the {id} of a results page with its paper and
// questions. Attempt ids are random UUIDs and act as the access token.
func (p *Public) loadAttempt(w http.ResponseWriter, r *http.Request) (*models.TestResult, *models.Paper, []models.Question, bool) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		p.NotFound(w, r)
		return nil, nil, nil, false
	}

	fail := func(what string, err error) {
		logger.FromContext(ctx).Error(what+" failed", "attempt_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	result, err := p.attempts.FindByID(ctx, id)
	if err != nil {
		fail("find attempt", err)
		return nil, nil, nil, false
	}
	if result == nil {
		p.NotFound(w, r)
		return nil, nil, nil, false
	}
	paper, err := p.papers.FindByID(ctx, result.PaperID)
	if err != nil {
		fail("find paper", err)
		return nil, nil, nil, false
	}
	if paper == nil {
		p.NotFound(w, r)
		return nil, nil, nil, false
	}
	qs, err := p.questions.ListByPaper(ctx, paper.ID)
	if err != nil {
		fail("list questions", err)
		return nil, nil, nil, false
	}
	return result, paper, qs, true
}

// elapsed converts the started_at form value into seconds spent. Missing,
// future or implausible values count as zero.
func (p *Public) elapsed(startedAt string) int {
	start, err := strconv.ParseInt(strings.TrimSpace(startedAt), 10, 64)
	if err != nil {
		return 0
	}
	secs := p.now().Unix() - start
	if secs < 0 || secs > maxAttemptSeconds {
		return 0
	}
	return int(secs)
}

func (p *Public) aiEnabled() bool {
	return p.assistant != nil && p.providers != nil && p.providers.Enabled()
}

// categoryCard builds the card of node. With children, the whole subtree
// is included.
func categoryCard(nodes []models.Category, node *models.Category, counts map[uuid.UUID]int, children bool) engine.CategoryCard {
	card := engine.CategoryCard{
		Category:   node.Summary(),
		Path:       tree.SlugPath(nodes, node.ID),
		PaperCount: tree.CascadeCount(nodes, node.ID, counts),
	}
	if children {
		for i := range node.Subcategories {
			card.Children = append(card.Children, categoryCard(nodes, &node.Subcategories[i], counts, true))
		}
	}
	return card
}

// breadcrumbs links every category from the root down to id.
func breadcrumbs(nodes []models.Category, id uuid.UUID) []engine.Crumb {
	path := tree.PathTo(nodes, id)
	crumbs := make([]engine.Crumb, 0, len(path))
	for _, c := range path {
		crumbs = append(crumbs, engine.Crumb{
			Name: c.Name,
			URL:  engine.CategoryURL(tree.SlugPath(nodes, c.ID)),
		})
	}
	return crumbs
}

// visiblePapers drops papers whose category is not in the published forest.
func visiblePapers(published []models.Category, papers []models.Paper) []models.Paper {
	out := make([]models.Paper, 0, len(papers))
	for _, paper := range papers {
		if paper.Published && tree.FindByID(published, paper.CategoryID) != nil {
			out = append(out, paper)
		}
	}
	return out
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
