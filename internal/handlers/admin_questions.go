package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"prepify/internal/logger"
	"prepify/internal/models"
	"prepify/internal/render"
	"prepify/internal/store"
)

// QuestionsList renders the questions of a paper in display order.
func (a *Admin) QuestionsList(w http.ResponseWriter, r *http.Request) {
	paper, ok := a.loadPaper(w, r)
	if !ok {
		return
	}
	items, err := a.questions.ListByPaper(r.Context(), paper.ID)
	if err != nil {
		logger.FromContext(r.Context()).Error("list questions failed", "paper_id", paper.ID, "error", err)
	}

	a.renderer.Page(w, r, "questions_list", &render.PageData{
		Title:   "Questions",
		Section: "papers",
		Data: map[string]any{
			"Paper": paper,
			"Items": items,
		},
	})
}

// QuestionNew renders the empty question form.
func (a *Admin) QuestionNew(w http.ResponseWriter, r *http.Request) {
	paper, ok := a.loadPaper(w, r)
	if !ok {
		return
	}
	form := QuestionForm{Type: string(models.QuestionTypeMCQ)}
	a.renderQuestionForm(w, r, http.StatusOK, paper, uuid.Nil, form, nil)
}

// QuestionCreate appends a question to the paper unless a position is
// given.
func (a *Admin) QuestionCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	paper, ok := a.loadPaper(w, r)
	if !ok {
		return
	}

	form := bindQuestionForm(r)
	if errs := checkForm(form); errs != nil {
		a.renderQuestionForm(w, r, http.StatusUnprocessableEntity, paper, uuid.Nil, form, errs)
		return
	}

	q := &models.Question{PaperID: paper.ID}
	form.apply(q)
	created, err := a.questions.Create(ctx, q)
	if err != nil {
		logger.FromContext(ctx).Error("create question failed", "paper_id", paper.ID, "error", err)
		a.renderQuestionForm(w, r, http.StatusInternalServerError, paper, uuid.Nil, form,
			map[string]string{"_form": "The question could not be saved."})
		return
	}

	a.invalidatePapers(ctx, paper.Slug)
	logger.FromContext(ctx).Info("question created", "paper_id", paper.ID, "question_id", created.ID)
	redirectNotice(w, r, "/admin/papers/"+paper.ID.String()+"/questions", "created")
}

// QuestionEdit renders the edit form of a question.
func (a *Admin) QuestionEdit(w http.ResponseWriter, r *http.Request) {
	paper, q, ok := a.loadQuestion(w, r)
	if !ok {
		return
	}
	a.renderQuestionForm(w, r, http.StatusOK, paper, q.ID, questionForm(q), nil)
}

// QuestionUpdate handles the question edit form submission.
func (a *Admin) QuestionUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	paper, q, ok := a.loadQuestion(w, r)
	if !ok {
		return
	}

	form := bindQuestionForm(r)
	if errs := checkForm(form); errs != nil {
		a.renderQuestionForm(w, r, http.StatusUnprocessableEntity, paper, q.ID, form, errs)
		return
	}

	form.apply(q)
	if err := a.questions.Update(ctx, q); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.FromContext(ctx).Error("update question failed", "question_id", q.ID, "error", err)
		a.renderQuestionForm(w, r, http.StatusInternalServerError, paper, q.ID, form,
			map[string]string{"_form": "The question could not be saved."})
		return
	}

	a.invalidatePapers(ctx, paper.Slug)
	redirectNotice(w, r, "/admin/papers/"+paper.ID.String()+"/questions", "updated")
}

// QuestionDelete removes a question from its paper.
func (a *Admin) QuestionDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paper, q, ok := a.loadQuestion(w, r)
	if !ok {
		return
	}
	back := "/admin/papers/" + paper.ID.String() + "/questions"

	if err := a.questions.Delete(ctx, q.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			redirectNotice(w, r, back, "not_found")
			return
		}
		logger.FromContext(ctx).Error("delete question failed", "question_id", q.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.invalidatePapers(ctx, paper.Slug)
	redirectNotice(w, r, back, "deleted")
}

// loadQuestion resolves {id} and {qid}. A question of another paper is
// reported as missing.
func (a *Admin) loadQuestion(w http.ResponseWriter, r *http.Request) (*models.Paper, *models.Question, bool) {
	paper, ok := a.loadPaper(w, r)
	if !ok {
		return nil, nil, false
	}
	qid, ok := urlID(w, r, "qid")
	if !ok {
		return nil, nil, false
	}
	q, err := a.questions.FindByID(r.Context(), qid)
	if err != nil {
		logger.FromContext(r.Context()).Error("find question failed", "question_id", qid, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	if q == nil || q.PaperID != paper.ID {
		http.NotFound(w, r)
		return nil, nil, false
	}
	return paper, q, true
}

func (a *Admin) renderQuestionForm(w http.ResponseWriter, r *http.Request, status int, paper *models.Paper, questionID uuid.UUID, form QuestionForm, errs map[string]string) {
	if errs == nil {
		errs = map[string]string{}
	}
	isNew := questionID == uuid.Nil
	title := "Edit Question"
	if isNew {
		title = "New Question"
	}
	a.renderer.PageStatus(w, r, status, "question_form", &render.PageData{
		Title:   title,
		Section: "papers",
		Data: map[string]any{
			"Paper":      paper,
			"Form":       form,
			"IsNew":      isNew,
			"QuestionID": questionID,
			"Errors":     errs,
		},
	})
}
