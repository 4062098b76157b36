// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"prepify/internal/models"
)

func TestPaperStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db, nil, nil)
	s := NewPaperStore(db, nil)
	ctx := context.Background()

	leaf := newCategory(t, cats, db, "Paper Leaf", nil)
	year := 2023
	session := "May/June"
	p, err := s.Create(ctx, &models.Paper{
		Title:       "Physics Fundamentals",
		Slug:        uniq("physics-fundamentals"),
		Description: "Basic principles.",
		CategoryID:  leaf.ID,
		Duration:    10,
		Year:        &year,
		Session:     &session,
		Published:   true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM papers WHERE id = $1", p.ID) })

	if p.ID == uuid.Nil || p.QuestionCount != 0 {
		t.Errorf("created paper = %+v", p)
	}

	bySlug, err := s.FindBySlug(ctx, p.Slug)
	if err != nil || bySlug == nil || bySlug.ID != p.ID {
		t.Fatalf("FindBySlug = %v, %v", bySlug, err)
	}
	if bySlug.Year == nil || *bySlug.Year != 2023 || bySlug.Session == nil || *bySlug.Session != "May/June" {
		t.Errorf("year/session not stored: %+v", bySlug)
	}

	missing, err := s.FindBySlug(ctx, "no-such-paper-"+uuid.NewString())
	if err != nil || missing != nil {
		t.Errorf("FindBySlug(unknown) = %v, %v", missing, err)
	}

	_, err = s.Create(ctx, &models.Paper{Title: "Dup", Slug: p.Slug, CategoryID: leaf.ID, Duration: 5})
	if !errors.Is(err, ErrSlugTaken) {
		t.Errorf("duplicate slug: err = %v, want ErrSlugTaken", err)
	}
}

func TestPaperStoreRejectsParentCategory(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db, nil, nil)
	s := NewPaperStore(db, nil)
	ctx := context.Background()

	parent := newCategory(t, cats, db, "Has Children", nil)
	newCategory(t, cats, db, "Only Child", &parent.ID)

	tests := []struct {
		name       string
		categoryID uuid.UUID
	}{
		{name: "parent category", categoryID: parent.ID},
		{name: "missing category", categoryID: uuid.New()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, &models.Paper{
				Title: "Misplaced", Slug: uniq("misplaced"), CategoryID: tt.categoryID, Duration: 5,
			})
			if !errors.Is(err, ErrInvalidCategory) {
				t.Errorf("err = %v, want ErrInvalidCategory", err)
			}
		})
	}
}

func TestPaperStoreCreateWaitsForConcurrentChild(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db, nil, nil)
	s := NewPaperStore(db, nil)
	ctx := context.Background()

	leaf := newCategory(t, cats, db, "Leaf For Now", nil)
	tx := lockedChild(t, db, leaf.ID)

	err := waitBlocked(t, func() error {
		p, err := s.Create(ctx, &models.Paper{
			Title: "Racing", Slug: uniq("racing"), CategoryID: leaf.ID, Duration: 5,
		})
		if p != nil {
			db.Exec("DELETE FROM papers WHERE id = $1", p.ID)
		}
		return err
	}, tx.Commit)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("Create = %v, want ErrInvalidCategory", err)
	}
}

func TestPaperStoreListsAndCounts(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db, nil, nil)
	s := NewPaperStore(db, nil)
	ctx := context.Background()

	a := newCategory(t, cats, db, "List A", nil)
	b := newCategory(t, cats, db, "List B", nil)
	pa := newPaper(t, s, db, a.ID, "Alpha")
	pb := newPaper(t, s, db, b.ID, "Beta")
	draft := newPaper(t, s, db, b.ID, "Draft")

	if err := s.SetPublished(ctx, draft.ID, false); err != nil {
		t.Fatalf("SetPublished: %v", err)
	}
	if err := s.SetFeatured(ctx, pa.ID, true); err != nil {
		t.Fatalf("SetFeatured: %v", err)
	}

	published, err := s.ListByCategories(ctx, []uuid.UUID{a.ID, b.ID}, true)
	if err != nil {
		t.Fatalf("ListByCategories: %v", err)
	}
	if len(published) != 2 || published[0].ID != pa.ID || published[1].ID != pb.ID {
		t.Errorf("published = %v, want Alpha, Beta", titles(published))
	}

	all, err := s.ListByCategories(ctx, []uuid.UUID{b.ID}, false)
	if err != nil {
		t.Fatalf("ListByCategories: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all in B = %v, want Beta and Draft", titles(all))
	}

	none, err := s.ListByCategories(ctx, nil, true)
	if err != nil || len(none) != 0 {
		t.Errorf("ListByCategories(nil) = %v, %v", none, err)
	}

	counts, err := s.CountPublishedByCategory(ctx)
	if err != nil {
		t.Fatalf("CountPublishedByCategory: %v", err)
	}
	if counts[a.ID] != 1 || counts[b.ID] != 1 {
		t.Errorf("counts = A:%d B:%d, want 1 and 1", counts[a.ID], counts[b.ID])
	}

	featured, err := s.ListFeatured(ctx, 100)
	if err != nil {
		t.Fatalf("ListFeatured: %v", err)
	}
	found := false
	for _, p := range featured {
		found = found || p.ID == pa.ID
	}
	if !found {
		t.Error("featured paper missing from ListFeatured")
	}
}

func TestPaperStoreCopy(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db, nil, nil)
	s := NewPaperStore(db, nil)
	qs := NewQuestionStore(db, nil)
	ctx := context.Background()

	leaf := newCategory(t, cats, db, "Copy Leaf", nil)
	orig := newPaper(t, s, db, leaf.ID, "Original")
	for _, text := range []string{"First?", "Second?"} {
		if _, err := qs.Create(ctx, &models.Question{
			PaperID: orig.ID, Type: models.QuestionTypeMCQ, QuestionText: text,
			Options: models.StringList{"a", "b"}, CorrectAnswer: models.StringList{"a"},
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	cp, err := s.Copy(ctx, orig.ID, "Original (Copy)", uniq("original-copy"))
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM papers WHERE id = $1", cp.ID) })

	if cp.Published || cp.Featured {
		t.Errorf("copy flags: published=%v featured=%v", cp.Published, cp.Featured)
	}
	if cp.CategoryID != leaf.ID || cp.QuestionCount != 2 {
		t.Errorf("copy = %+v, want same category and 2 questions", cp)
	}

	if _, err := s.Copy(ctx, uuid.New(), "Nothing", uniq("nothing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Copy(unknown) = %v, want ErrNotFound", err)
	}
}

func TestPaperStoreDeleteCascadesQuestions(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db, nil, nil)
	s := NewPaperStore(db, nil)
	qs := NewQuestionStore(db, nil)
	ctx := context.Background()

	leaf := newCategory(t, cats, db, "Cascade Leaf", nil)
	p := newPaper(t, s, db, leaf.ID, "Cascade")
	q, err := qs.Create(ctx, &models.Question{
		PaperID: p.ID, Type: models.QuestionTypeShortAnswer, QuestionText: "Explain.",
		CorrectAnswer: models.StringList{"Because."},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := qs.FindByID(ctx, q.ID)
	if err != nil || got != nil {
		t.Errorf("question after paper delete = %v, %v; want nil", got, err)
	}
	if err := s.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func titles(papers []models.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Title
	}
	return out
}
