// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"prepify/internal/logger"
	"prepify/internal/models"
	"prepify/internal/render"
	"prepify/internal/slug"
	"prepify/internal/store"
	"prepify/internal/tree"
)

// paperRow is one line of the papers table.
type paperRow struct {
	Paper        models.Paper
	CategoryPath string
}

// PapersList renders every paper with its category path.
func (a *Admin) PapersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	papers, err := a.papers.List(ctx)
	if err != nil {
		log.Error("list papers failed", "error", err)
	}
	forest, err := a.categories.Tree(ctx)
	if err != nil {
		log.Error("load category tree failed", "error", err)
	}

	rows := make([]paperRow, 0, len(papers))
	for _, p := range papers {
		rows = append(rows, paperRow{Paper: p, CategoryPath: tree.SlugPath(forest, p.CategoryID)})
	}

	a.renderer.Page(w, r, "papers_list", &render.PageData{
		Title:   "Papers",
		Section: "papers",
		Data:    map[string]any{"Items": rows},
	})
}

// PaperNew renders the empty paper form.
func (a *Admin) PaperNew(w http.ResponseWriter, r *http.Request) {
	item := &models.Paper{Duration: 60, Published: true}
	a.renderPaperForm(w, r, http.StatusOK, true, item, nil)
}

// PaperCreate handles the new paper form submission.
func (a *Admin) PaperCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := bindPaperForm(r)
	item := &models.Paper{}
	form.apply(item)

	if errs := checkForm(form); errs != nil {
		a.renderPaperForm(w, r, http.StatusUnprocessableEntity, true, item, errs)
		return
	}
	if err := a.defaultPaperSlug(ctx, item); err != nil {
		a.paperWriteFailed(w, r, true, item, err)
		return
	}

	created, err := a.papers.Create(ctx, item)
	if err != nil {
		a.paperWriteFailed(w, r, true, item, err)
		return
	}

	a.invalidatePapers(ctx, created.Slug)
	logger.FromContext(ctx).Info("paper created", "paper_id", created.ID, "slug", created.Slug)
	redirectNotice(w, r, "/admin/papers", "created")
}

// PaperEdit renders the edit form of a paper.
func (a *Admin) PaperEdit(w http.ResponseWriter, r *http.Request) {
	item, ok := a.loadPaper(w, r)
	if !ok {
		return
	}
	a.renderPaperForm(w, r, http.StatusOK, false, item, nil)
}

// PaperUpdate handles the edit form submission.
func (a *Admin) PaperUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	item, ok := a.loadPaper(w, r)
	if !ok {
		return
	}
	oldSlug := item.Slug

	form := bindPaperForm(r)
	form.apply(item)

	if errs := checkForm(form); errs != nil {
		a.renderPaperForm(w, r, http.StatusUnprocessableEntity, false, item, errs)
		return
	}
	if err := a.defaultPaperSlug(ctx, item); err != nil {
		a.paperWriteFailed(w, r, false, item, err)
		return
	}

	if err := a.papers.Update(ctx, item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		a.paperWriteFailed(w, r, false, item, err)
		return
	}

	a.invalidatePapers(ctx, oldSlug, item.Slug)
	logger.FromContext(ctx).Info("paper updated", "paper_id", item.ID)
	redirectNotice(w, r, "/admin/papers", "updated")
}

// PaperDelete removes a paper with its questions and attempts.
func (a *Admin) PaperDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	// Look up the slug before deleting so its cached pages can be dropped.
	item, _ := a.papers.FindByID(ctx, id)

	if err := a.papers.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirectNotice(w, r, "/admin/papers", "not_found")
			return
		}
		logger.FromContext(ctx).Error("delete paper failed", "paper_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if item != nil {
		a.invalidatePapers(ctx, item.Slug)
	}
	logger.FromContext(ctx).Info("paper deleted", "paper_id", id)
	redirectNotice(w, r, "/admin/papers", "deleted")
}

// PaperCopyForm renders the duplicate form, prefilled with "Copy of".
func (a *Admin) PaperCopyForm(w http.ResponseWriter, r *http.Request) {
	src, ok := a.loadPaper(w, r)
	if !ok {
		return
	}
	a.renderCopyForm(w, r, http.StatusOK, src, CopyForm{Title: "Copy of " + src.Title}, nil)
}

// PaperCopy duplicates a paper and its questions. The copy starts as an
// unpublished draft.
func (a *Admin) PaperCopy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	src, ok := a.loadPaper(w, r)
	if !ok {
		return
	}

	form := bindCopyForm(r)
	if errs := checkForm(form); errs != nil {
		a.renderCopyForm(w, r, http.StatusUnprocessableEntity, src, form, errs)
		return
	}

	newSlug := form.Slug
	if newSlug == "" {
		forest, err := a.categories.Tree(ctx)
		if err != nil {
			logger.FromContext(ctx).Error("load category tree failed", "error", err)
		}
		newSlug = slug.Paper(tree.SlugPath(forest, src.CategoryID), form.Title, src.Year, src.Session)
	}

	created, err := a.papers.Copy(ctx, src.ID, form.Title, newSlug)
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		form.Slug = newSlug
		a.renderCopyForm(w, r, http.StatusUnprocessableEntity, src, form,
			map[string]string{"slug": "Another paper already uses this slug."})
		return
	case errors.Is(err, store.ErrNotFound):
		redirectNotice(w, r, "/admin/papers", "not_found")
		return
	case err != nil:
		logger.FromContext(ctx).Error("copy paper failed", "paper_id", src.ID, "error", err)
		a.renderCopyForm(w, r, http.StatusInternalServerError, src, form,
			map[string]string{"_form": "The paper could not be copied."})
		return
	}

	a.invalidatePapers(ctx, created.Slug)
	logger.FromContext(ctx).Info("paper copied", "source_id", src.ID, "paper_id", created.ID)
	redirectNotice(w, r, "/admin/papers", "copied")
}

// PaperFeatured sets the featured flag from the posted value.
func (a *Admin) PaperFeatured(w http.ResponseWriter, r *http.Request) {
	a.togglePaper(w, r, a.papers.SetFeatured)
}

// PaperPublished sets the published flag from the posted value.
func (a *Admin) PaperPublished(w http.ResponseWriter, r *http.Request) {
	a.togglePaper(w, r, a.papers.SetPublished)
}

func (a *Admin) togglePaper(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id uuid.UUID, v bool) error) {
	ctx := r.Context()
	item, ok := a.loadPaper(w, r)
	if !ok {
		return
	}
	if err := set(ctx, item.ID, formBool(r, "value")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirectNotice(w, r, "/admin/papers", "not_found")
			return
		}
		logger.FromContext(ctx).Error("toggle paper failed", "paper_id", item.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.invalidatePapers(ctx, item.Slug)
	redirectNotice(w, r, "/admin/papers", "updated")
}

// loadPaper resolves the {id} route parameter, answering 400, 404 or 500
// itself when it cannot.
func (a *Admin) loadPaper(w http.ResponseWriter, r *http.Request) (*models.Paper, bool) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return nil, false
	}
	item, err := a.papers.FindByID(r.Context(), id)
	if err != nil {
		logger.FromContext(r.Context()).Error("find paper failed", "paper_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if item == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return item, true
}

// defaultPaperSlug fills an empty slug from the category path, title, year
// and session. The category must be a leaf of the current tree.
func (a *Admin) defaultPaperSlug(ctx context.Context, p *models.Paper) error {
	forest, err := a.categories.Tree(ctx)
	if err != nil {
		return err
	}
	node := tree.FindByID(forest, p.CategoryID)
	if node == nil || node.IsParent() {
		return store.ErrInvalidCategory
	}
	if p.Slug == "" {
		p.Slug = slug.Paper(tree.SlugPath(forest, p.CategoryID), p.Title, p.Year, p.Session)
	}
	return nil
}

func (a *Admin) paperWriteFailed(w http.ResponseWriter, r *http.Request, isNew bool, item *models.Paper, err error) {
	errs := map[string]string{}
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		errs["slug"] = "Another paper already uses this slug."
	case errors.Is(err, store.ErrInvalidCategory):
		errs["category_id"] = "Papers can only be assigned to a category without sub-categories."
	default:
		logger.FromContext(r.Context()).Error("save paper failed", "error", err)
		errs["_form"] = "The paper could not be saved."
		status = http.StatusInternalServerError
	}
	a.renderPaperForm(w, r, status, isNew, item, errs)
}

func (a *Admin) renderPaperForm(w http.ResponseWriter, r *http.Request, status int, isNew bool, item *models.Paper, errs map[string]string) {
	forest, err := a.categories.Tree(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("load category tree failed", "error", err)
	}
	if errs == nil {
		errs = map[string]string{}
	}

	// Only leaves can hold papers; parents stay visible for orientation.
	var options []categoryOption
	for _, flat := range tree.Flatten(forest) {
		options = append(options, categoryOption{ID: flat.ID, Name: flat.Name, Level: flat.Level, Disabled: flat.IsParent})
	}

	title := "Edit Paper"
	if isNew {
		title = "New Paper"
	}
	a.renderer.PageStatus(w, r, status, "paper_form", &render.PageData{
		Title:   title,
		Section: "papers",
		Data: map[string]any{
			"IsNew":      isNew,
			"Item":       item,
			"Categories": options,
			"Errors":     errs,
			"AIEnabled":  a.aiEnabled(),
		},
	})
}

func (a *Admin) renderCopyForm(w http.ResponseWriter, r *http.Request, status int, src *models.Paper, form CopyForm, errs map[string]string) {
	if errs == nil {
		errs = map[string]string{}
	}
	a.renderer.PageStatus(w, r, status, "paper_copy", &render.PageData{
		Title:   "Copy Paper",
		Section: "papers",
		Data: map[string]any{
			"Source": src,
			"Title":  form.Title,
			"Slug":   form.Slug,
			"Errors": errs,
		},
	})
}
