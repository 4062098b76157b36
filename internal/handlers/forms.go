// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"prepify/internal/models"
	"prepify/internal/slug"
)

// CategoryForm is a submitted category editor form. Slug is normalized
// at bind time and falls back to the name.
type CategoryForm struct {
	Name            string `form:"name" validate:"required,min=2,max=100"`
	Slug            string `form:"slug" validate:"required,max=200,slug"`
	ParentID        string `form:"parent_id" validate:"omitempty,uuid"`
	Description     string `form:"description" validate:"max=5000"`
	MetaTitle       string `form:"meta_title" validate:"max=60"`
	MetaDescription string `form:"meta_description" validate:"max=160"`
	Keywords        string `form:"keywords" validate:"max=500"`
	Featured        bool   `form:"featured"`
	Published       bool   `form:"published"`
}

func bindCategoryForm(r *http.Request) CategoryForm {
	name := strings.TrimSpace(r.FormValue("name"))
	raw := strings.TrimSpace(r.FormValue("slug"))
	if raw == "" {
		raw = name
	}
	return CategoryForm{
		Name:            name,
		Slug:            slug.Generate(raw),
		ParentID:        strings.TrimSpace(r.FormValue("parent_id")),
		Description:     strings.TrimSpace(r.FormValue("description")),
		MetaTitle:       strings.TrimSpace(r.FormValue("meta_title")),
		MetaDescription: strings.TrimSpace(r.FormValue("meta_description")),
		Keywords:        strings.TrimSpace(r.FormValue("keywords")),
		Featured:        formBool(r, "featured"),
		Published:       formBool(r, "published"),
	}
}

// apply copies the form onto c, leaving id and timestamps alone.
func (f CategoryForm) apply(c *models.Category) {
	c.Name = f.Name
	c.Slug = f.Slug
	c.ParentID = nil
	if id, err := uuid.Parse(f.ParentID); err == nil {
		c.ParentID = &id
	}
	c.Description = optional(f.Description)
	c.MetaTitle = optional(f.MetaTitle)
	c.MetaDescription = optional(f.MetaDescription)
	c.Keywords = optional(f.Keywords)
	c.Featured = f.Featured
	c.Published = f.Published
}

// PaperForm is a submitted paper editor form. An empty slug is derived
// from the category path, title, year and session after validation.
type PaperForm struct {
	Title           string `form:"title" validate:"required,min=3,max=300"`
	Slug            string `form:"slug" validate:"omitempty,max=300,slug"`
	CategoryID      string `form:"category_id" validate:"required,uuid"`
	Description     string `form:"description" validate:"required,min=10,max=5000"`
	Duration        int    `form:"duration" validate:"required,gte=1,lte=600"`
	Year            int    `form:"year" validate:"omitempty,gte=1900,lte=2100"`
	Session         string `form:"session" validate:"max=50"`
	MetaTitle       string `form:"meta_title" validate:"max=60"`
	MetaDescription string `form:"meta_description" validate:"max=160"`
	Keywords        string `form:"keywords" validate:"max=500"`
	Featured        bool   `form:"featured"`
	Published       bool   `form:"published"`
}

func bindPaperForm(r *http.Request) PaperForm {
	return PaperForm{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Slug:            slug.Generate(r.FormValue("slug")),
		CategoryID:      strings.TrimSpace(r.FormValue("category_id")),
		Description:     strings.TrimSpace(r.FormValue("description")),
		Duration:        formInt(r, "duration"),
		Year:            formInt(r, "year"),
		Session:         strings.TrimSpace(r.FormValue("session")),
		MetaTitle:       strings.TrimSpace(r.FormValue("meta_title")),
		MetaDescription: strings.TrimSpace(r.FormValue("meta_description")),
		Keywords:        strings.TrimSpace(r.FormValue("keywords")),
		Featured:        formBool(r, "featured"),
		Published:       formBool(r, "published"),
	}
}

func (f PaperForm) apply(p *models.Paper) {
	p.Title = f.Title
	p.Slug = f.Slug
	p.CategoryID, _ = uuid.Parse(f.CategoryID)
	p.Description = f.Description
	p.Duration = f.Duration
	p.Year = nil
	if f.Year != 0 {
		y := f.Year
		p.Year = &y
	}
	p.Session = optional(f.Session)
	p.MetaTitle = optional(f.MetaTitle)
	p.MetaDescription = optional(f.MetaDescription)
	p.Keywords = optional(f.Keywords)
	p.Featured = f.Featured
	p.Published = f.Published
}

// CopyForm names the duplicate of a paper.
type CopyForm struct {
	Title string `form:"title" validate:"required,min=3,max=300"`
	Slug  string `form:"slug" validate:"omitempty,max=300,slug"`
}

func bindCopyForm(r *http.Request) CopyForm {
	return CopyForm{
		Title: strings.TrimSpace(r.FormValue("title")),
		Slug:  slug.Generate(r.FormValue("slug")),
	}
}

// QuestionForm is a submitted question editor form. Options and correct
// answers are entered one per line.
type QuestionForm struct {
	QuestionText  string `form:"question_text" validate:"required,min=10,max=2000"`
	Type          string `form:"type" validate:"required,oneof=mcq short_answer"`
	Options       string `form:"options" validate:"max=5000"`
	CorrectAnswer string `form:"correct_answer" validate:"required,max=2000"`
	Explanation   string `form:"explanation" validate:"max=10000"`
	Position      int    `form:"position" validate:"gte=0"`
}

func bindQuestionForm(r *http.Request) QuestionForm {
	return QuestionForm{
		QuestionText:  strings.TrimSpace(r.FormValue("question_text")),
		Type:          strings.TrimSpace(r.FormValue("type")),
		Options:       strings.TrimSpace(r.FormValue("options")),
		CorrectAnswer: strings.TrimSpace(r.FormValue("correct_answer")),
		Explanation:   strings.TrimSpace(r.FormValue("explanation")),
		Position:      formInt(r, "position"),
	}
}

// questionForm fills the editor from a stored question.
func questionForm(q *models.Question) QuestionForm {
	f := QuestionForm{
		QuestionText:  q.QuestionText,
		Type:          string(q.Type),
		Options:       strings.Join(q.Options, "\n"),
		CorrectAnswer: strings.Join(q.CorrectAnswer, "\n"),
		Position:      q.Position,
	}
	if q.Explanation != nil {
		f.Explanation = *q.Explanation
	}
	return f
}

func (f QuestionForm) apply(q *models.Question) {
	q.QuestionText = f.QuestionText
	q.Type = models.QuestionType(f.Type)
	q.Options = nil
	if q.Type == models.QuestionTypeMCQ {
		q.Options = lines(f.Options)
	}
	q.CorrectAnswer = lines(f.CorrectAnswer)
	q.Explanation = optional(f.Explanation)
	q.Position = f.Position
}

// questionRules checks the rules that span several question fields.
func questionRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(QuestionForm)
	if f.Type != string(models.QuestionTypeMCQ) {
		return
	}
	opts := lines(f.Options)
	if len(opts) < 2 {
		sl.ReportError(f.Options, "options", "Options", "min_options", "")
		return
	}
	for _, a := range lines(f.CorrectAnswer) {
		if !slices.Contains(opts, a) {
			sl.ReportError(f.CorrectAnswer, "correct_answer", "CorrectAnswer", "answer_in_options", "")
			return
		}
	}
}

// lines splits a textarea into trimmed, non-empty lines.
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formBool(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "true", "on", "1":
		return true
	}
	return false
}

// formInt parses an integer field. Blank is zero; garbage is -1 so the
// range rules reject it.
func formInt(r *http.Request, name string) int {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
