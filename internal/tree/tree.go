// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tree builds and queries the category hierarchy. Every function is
// pure: it takes a snapshot (flat records or an already built forest) and
// returns a fresh result without touching shared state, so callers may use
// it concurrently and must rebuild after every write.
package tree

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// FlatCategory is one row of a depth-annotated, pre-order listing of the
// forest. Used for indented <select> options and the admin category table.
type FlatCategory struct {
	ID       uuid.UUID
	Name     string
	Level    int
	IsParent bool
}

// Build turns a flat, unordered record set into a forest.
//
// Records whose parent is absent or unknown become roots. Roots are ordered
// featured first, then by name; children are ordered by name. Ties on name
// fall back to the id so the output never depends on input order.
//
// Build expects a graph without duplicate ids or parent cycles (see
// Validate). Records on a parent cycle are unreachable from any root and do
// not appear in the result.
func Build(records []models.Category) []models.Category {
	known := make(map[uuid.UUID]struct{}, len(records))
	for _, r := range records {
		known[r.ID] = struct{}{}
	}

	children := make(map[uuid.UUID][]models.Category)
	var roots []models.Category
	for _, r := range records {
		r.Subcategories = nil
		if r.ParentID != nil {
			if _, ok := known[*r.ParentID]; ok {
				children[*r.ParentID] = append(children[*r.ParentID], r)
				continue
			}
		}
		roots = append(roots, r)
	}

	slices.SortFunc(roots, compareRoots)
	return assemble(roots, children)
}

// assemble attaches sorted children to each node, top-down.
func assemble(nodes []models.Category, children map[uuid.UUID][]models.Category) []models.Category {
	out := make([]models.Category, len(nodes))
	for i, n := range nodes {
		kids := children[n.ID]
		slices.SortFunc(kids, compareByName)
		n.Subcategories = assemble(kids, children)
		out[i] = n
	}
	return out
}

func compareRoots(a, b models.Category) int {
	if a.Featured != b.Featured {
		if a.Featured {
			return -1
		}
		return 1
	}
	return compareByName(a, b)
}

func compareByName(a, b models.Category) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// FindByID returns the first node with the given id in depth-first
// pre-order, or nil. The returned node points into the forest and must be
// treated as read-only.
func FindByID(nodes []models.Category, id uuid.UUID) *models.Category {
	return find(nodes, func(c *models.Category) bool { return c.ID == id })
}

// FindBySlug returns the first node whose slug matches in depth-first
// pre-order (children visited in their sorted order), or nil.
func FindBySlug(nodes []models.Category, slug string) *models.Category {
	return find(nodes, func(c *models.Category) bool { return c.Slug == slug })
}

func find(nodes []models.Category, match func(*models.Category) bool) *models.Category {
	for i := range nodes {
		if match(&nodes[i]) {
			return &nodes[i]
		}
		if found := find(nodes[i].Subcategories, match); found != nil {
			return found
		}
	}
	return nil
}

// DescendantIDs returns the id of the start node followed by every id
// reachable from it, in breadth-first order. Empty when id is unknown.
func DescendantIDs(nodes []models.Category, id uuid.UUID) []uuid.UUID {
	start := FindByID(nodes, id)
	if start == nil {
		return nil
	}

	var ids []uuid.UUID
	queue := []*models.Category{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ids = append(ids, n.ID)
		for i := range n.Subcategories {
			queue = append(queue, &n.Subcategories[i])
		}
	}
	return ids
}

// DescendantSet is DescendantIDs as a set, for membership checks such as
// "is this paper under category X" or "would this re-parent create a loop".
func DescendantSet(nodes []models.Category, id uuid.UUID) map[uuid.UUID]struct{} {
	ids := DescendantIDs(nodes, id)
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, d := range ids {
		set[d] = struct{}{}
	}
	return set
}

// Flatten lists every node in pre-order with its 0-based depth.
func Flatten(nodes []models.Category) []FlatCategory {
	var out []FlatCategory
	var walk func([]models.Category, int)
	walk = func(level []models.Category, depth int) {
		for _, n := range level {
			out = append(out, FlatCategory{
				ID:       n.ID,
				Name:     n.Name,
				Level:    depth,
				IsParent: len(n.Subcategories) > 0,
			})
			walk(n.Subcategories, depth+1)
		}
	}
	walk(nodes, 0)
	return out
}

// PathTo returns the chain from a root down to and including the node with
// the given id. Elements are summaries without subcategories. Nil when the
// id is not in the forest.
func PathTo(nodes []models.Category, id uuid.UUID) []models.Category {
	var path []models.Category
	if walkPath(nodes, id, &path) {
		return path
	}
	return nil
}

func walkPath(nodes []models.Category, id uuid.UUID, path *[]models.Category) bool {
	for _, n := range nodes {
		*path = append(*path, n.Summary())
		if n.ID == id || walkPath(n.Subcategories, id, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}
