package tree

import (
	"strings"

	"github.com/google/uuid"

	"prepify/internal/models"
)

// SlugPath joins the slugs along PathTo with "/". This is the part of the
// public category URL after /categories/. Empty when id is unknown.
func SlugPath(nodes []models.Category, id uuid.UUID) string {
	path := PathTo(nodes, id)
	segs := make([]string, len(path))
	for i, c := range path {
		segs[i] = c.Slug
	}
	return strings.Join(segs, "/")
}

// ResolvePath finds the category addressed by the URL segments. Segments
// are matched level by level against child slugs; if that walk fails the
// joined path is looked up with FindBySlug, so a bare leaf slug also works.
func ResolvePath(nodes []models.Category, segments []string) *models.Category {
	if len(segments) == 0 {
		return nil
	}

	level := nodes
	var cur *models.Category
	for _, seg := range segments {
		cur = nil
		for i := range level {
			if level[i].Slug == seg {
				cur = &level[i]
				break
			}
		}
		if cur == nil {
			break
		}
		level = cur.Subcategories
	}
	if cur != nil {
		return cur
	}
	return FindBySlug(nodes, strings.Join(segments, "/"))
}

// Filter keeps nodes whose name contains query (case-insensitive) together
// with every ancestor of such a node. Non-matching branches are dropped. An
// empty query returns nodes unchanged.
func Filter(nodes []models.Category, query string) []models.Category {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nodes
	}
	return filter(nodes, query)
}

func filter(nodes []models.Category, query string) []models.Category {
	out := []models.Category{}
	for _, n := range nodes {
		kids := filter(n.Subcategories, query)
		if strings.Contains(strings.ToLower(n.Name), query) || len(kids) > 0 {
			n.Subcategories = kids
			out = append(out, n)
		}
	}
	return out
}

// Published drops unpublished nodes together with their subtrees.
func Published(nodes []models.Category) []models.Category {
	out := []models.Category{}
	for _, n := range nodes {
		if !n.Published {
			continue
		}
		n.Subcategories = Published(n.Subcategories)
		out = append(out, n)
	}
	return out
}

// CascadeCount sums direct per-category counts over the node and all of its
// descendants.
func CascadeCount(nodes []models.Category, id uuid.UUID, direct map[uuid.UUID]int) int {
	total := 0
	for _, d := range DescendantIDs(nodes, id) {
		total += direct[d]
	}
	return total
}
