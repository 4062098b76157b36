// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation for categories and
// papers. Transliteration and character rules come from gosimple/slug.
package slug

import (
	"strconv"
	"strings"

	gosimple "github.com/gosimple/slug"
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Physics Fundamentals 2023" → "physics-fundamentals-2023"
func Generate(s string) string {
	return gosimple.Make(strings.TrimSpace(s))
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	return gosimple.IsSlug(s)
}

// Join concatenates category path segments with "/", skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Paper builds the default slug of a paper: the category path with "/"
// turned into "-", then the slugified "title year session".
// Example: ("science/physics", "Mechanics", 2023, "May/June") →
// "science-physics-mechanics-2023-may-june"
func Paper(categoryPath, title string, year *int, session *string) string {
	parts := []string{title}
	if year != nil {
		parts = append(parts, strconv.Itoa(*year))
	}
	if session != nil {
		parts = append(parts, *session)
	}
	own := Generate(strings.Join(parts, " "))

	prefix := strings.ReplaceAll(strings.Trim(categoryPath, "/"), "/", "-")
	switch {
	case prefix == "":
		return own
	case own == "":
		return prefix
	}
	return prefix + "-" + own
}
