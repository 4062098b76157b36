// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the paper catalog hierarchy. The same struct is used
// for the flat record loaded from the database and for the tree node built
// from it; only tree nodes carry Subcategories.
type Category struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Description     *string    `json:"description,omitempty"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	Featured        bool       `json:"featured"`
	Published       bool       `json:"published"`
	MetaTitle       *string    `json:"meta_title,omitempty"`
	MetaDescription *string    `json:"meta_description,omitempty"`
	Keywords        *string    `json:"keywords,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Subcategories holds the ordered children of a tree node.
	Subcategories []Category `json:"subcategories,omitempty"`
}

// IsRoot reports whether the record has no parent reference.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// IsParent reports whether the tree node has at least one child.
func (c *Category) IsParent() bool {
	return len(c.Subcategories) > 0
}

// Summary returns a copy of the node without its subtree.
func (c Category) Summary() Category {
	c.Subcategories = nil
	return c
}

// PageTitle returns the SEO title, falling back to the name.
func (c *Category) PageTitle() string {
	if c.MetaTitle != nil && *c.MetaTitle != "" {
		return *c.MetaTitle
	}
	return c.Name
}

// PageDescription returns the SEO description, falling back to the
// description text.
func (c *Category) PageDescription() string {
	if c.MetaDescription != nil && *c.MetaDescription != "" {
		return *c.MetaDescription
	}
	if c.Description != nil {
		return *c.Description
	}
	return ""
}
