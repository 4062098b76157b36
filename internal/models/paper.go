// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Paper is a practice question paper. Papers always belong to a leaf
// category.
type Paper struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	CategoryID      uuid.UUID `json:"category_id"`
	Duration        int       `json:"duration"` // minutes
	Year            *int      `json:"year,omitempty"`
	Session         *string   `json:"session,omitempty"`
	Featured        bool      `json:"featured"`
	Published       bool      `json:"published"`
	Keywords        *string   `json:"keywords,omitempty"`
	MetaTitle       *string   `json:"meta_title,omitempty"`
	MetaDescription *string   `json:"meta_description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// QuestionCount is computed by the store from the questions table.
	QuestionCount int `json:"question_count"`
}

// PageTitle returns the SEO title, falling back to the paper title.
func (p *Paper) PageTitle() string {
	if p.MetaTitle != nil && *p.MetaTitle != "" {
		return *p.MetaTitle
	}
	return p.Title
}

// PageDescription returns the SEO description, falling back to the
// paper description.
func (p *Paper) PageDescription() string {
	if p.MetaDescription != nil && *p.MetaDescription != "" {
		return *p.MetaDescription
	}
	return p.Description
}
