package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"prepify/internal/logger"
	"prepify/internal/models"
	"prepify/internal/render"
	"prepify/internal/store"
	"prepify/internal/tree"
)

// categoryRow is one line of the indented category table.
type categoryRow struct {
	tree.FlatCategory
	Category   models.Category
	Path       string
	PaperCount int
}

// categoryOption is one entry of a category select box.
type categoryOption struct {
	ID       uuid.UUID
	Name     string
	Level    int
	Disabled bool
}

// CategoriesList renders the category tree, optionally filtered by ?q=.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	a.renderCategoryList(w, r, http.StatusOK, "")
}

func (a *Admin) renderCategoryList(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	forest, err := a.categories.Tree(ctx)
	if err != nil {
		log.Error("load category tree failed", "error", err)
		if errMsg == "" {
			errMsg = "Categories could not be loaded."
		}
	}
	counts, err := a.papers.CountPublishedByCategory(ctx)
	if err != nil {
		log.Warn("count papers by category failed", "error", err)
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	visible := tree.Filter(forest, query)

	var rows []categoryRow
	for _, flat := range tree.Flatten(visible) {
		node := tree.FindByID(forest, flat.ID)
		if node == nil {
			continue
		}
		rows = append(rows, categoryRow{
			FlatCategory: flat,
			Category:     node.Summary(),
			Path:         tree.SlugPath(forest, flat.ID),
			PaperCount:   tree.CascadeCount(forest, flat.ID, counts),
		})
	}

	a.renderer.PageStatus(w, r, status, "categories_list", &render.PageData{
		Title:   "Categories",
		Section: "categories",
		Data: map[string]any{
			"Rows":  rows,
			"Query": query,
			"Error": errMsg,
		},
	})
}

// CategoryNew renders the empty category form.
func (a *Admin) CategoryNew(w http.ResponseWriter, r *http.Request) {
	a.renderCategoryForm(w, r, http.StatusOK, true, &models.Category{Published: true}, nil)
}

// CategoryCreate handles the new category form submission.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := bindCategoryForm(r)
	item := &models.Category{}
	form.apply(item)

	if errs := checkForm(form); errs != nil {
		a.renderCategoryForm(w, r, http.StatusUnprocessableEntity, true, item, errs)
		return
	}

	created, err := a.categories.Create(ctx, item)
	if err != nil {
		a.categoryWriteFailed(w, r, true, item, err)
		return
	}

	a.invalidateAll(ctx)
	logger.FromContext(ctx).Info("category created", "category_id", created.ID, "slug", created.Slug)
	redirectNotice(w, r, "/admin/categories", "created")
}

// CategoryEdit renders the edit form of a category.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	item, err := a.categories.FindByID(r.Context(), id)
	if err != nil {
		logger.FromContext(r.Context()).Error("find category failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}
	a.renderCategoryForm(w, r, http.StatusOK, false, item, nil)
}

// CategoryUpdate handles the edit form submission.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	item, err := a.categories.FindByID(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("find category failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.NotFound(w, r)
		return
	}

	form := bindCategoryForm(r)
	form.apply(item)

	if errs := checkForm(form); errs != nil {
		a.renderCategoryForm(w, r, http.StatusUnprocessableEntity, false, item, errs)
		return
	}

	if err := a.categories.Update(ctx, item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		a.categoryWriteFailed(w, r, false, item, err)
		return
	}

	a.invalidateAll(ctx)
	logger.FromContext(ctx).Info("category updated", "category_id", item.ID)
	redirectNotice(w, r, "/admin/categories", "updated")
}

// CategoryDelete removes an empty category. Categories that still hold
// sub-categories or papers are refused with the reason shown on the list.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	err := a.categories.Delete(ctx, id)
	var inUse *store.InUseError
	switch {
	case errors.As(err, &inUse):
		a.renderCategoryList(w, r, http.StatusConflict, inUse.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		redirectNotice(w, r, "/admin/categories", "not_found")
		return
	case err != nil:
		logger.FromContext(ctx).Error("delete category failed", "category_id", id, "error", err)
		a.renderCategoryList(w, r, http.StatusInternalServerError, "The category could not be deleted.")
		return
	}

	a.invalidateAll(ctx)
	logger.FromContext(ctx).Info("category deleted", "category_id", id)
	redirectNotice(w, r, "/admin/categories", "deleted")
}

// CategoryFeatured sets the featured flag from the posted value.
func (a *Admin) CategoryFeatured(w http.ResponseWriter, r *http.Request) {
	a.toggleCategory(w, r, a.categories.SetFeatured)
}

// CategoryPublished sets the published flag from the posted value.
func (a *Admin) CategoryPublished(w http.ResponseWriter, r *http.Request) {
	a.toggleCategory(w, r, a.categories.SetPublished)
}

func (a *Admin) toggleCategory(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id uuid.UUID, v bool) error) {
	ctx := r.Context()
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := set(ctx, id, formBool(r, "value")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirectNotice(w, r, "/admin/categories", "not_found")
			return
		}
		logger.FromContext(ctx).Error("toggle category failed", "category_id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.invalidateAll(ctx)
	redirectNotice(w, r, "/admin/categories", "updated")
}

// categoryWriteFailed maps store errors onto form fields and re-renders.
func (a *Admin) categoryWriteFailed(w http.ResponseWriter, r *http.Request, isNew bool, item *models.Category, err error) {
	errs := map[string]string{}
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		errs["slug"] = "Another category under the same parent already uses this slug."
	case errors.Is(err, store.ErrInvalidParent):
		errs["parent_id"] = "Select a valid parent. A category cannot be placed under itself or one of its sub-categories."
	case errors.Is(err, store.ErrParentHasPapers):
		errs["parent_id"] = "The selected parent already contains papers. Papers can only belong to categories without sub-categories."
	case errors.Is(err, tree.ErrInvalidGraph):
		errs["_form"] = "The category hierarchy is inconsistent: " + err.Error()
	default:
		logger.FromContext(r.Context()).Error("save category failed", "error", err)
		errs["_form"] = "The category could not be saved."
		status = http.StatusInternalServerError
	}
	a.renderCategoryForm(w, r, status, isNew, item, errs)
}

func (a *Admin) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, isNew bool, item *models.Category, errs map[string]string) {
	forest, err := a.categories.Tree(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("load category tree failed", "error", err)
	}
	if errs == nil {
		errs = map[string]string{}
	}

	// A category may not move under itself or anything below it.
	blocked := map[uuid.UUID]struct{}{}
	if !isNew {
		blocked = tree.DescendantSet(forest, item.ID)
		blocked[item.ID] = struct{}{}
	}
	var parents []categoryOption
	for _, flat := range tree.Flatten(forest) {
		_, off := blocked[flat.ID]
		parents = append(parents, categoryOption{ID: flat.ID, Name: flat.Name, Level: flat.Level, Disabled: off})
	}

	title := "Edit Category"
	if isNew {
		title = "New Category"
	}
	a.renderer.PageStatus(w, r, status, "category_form", &render.PageData{
		Title:   title,
		Section: "categories",
		Data: map[string]any{
			"IsNew":     isNew,
			"Item":      item,
			"Parents":   parents,
			"Errors":    errs,
			"AIEnabled": a.aiEnabled(),
		},
	})
}
