// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the admin interface.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"prepify/internal/middleware"
)

//go:embed templates/admin/*.html templates/fragments/*.html
var adminFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active sidebar section (e.g., "dashboard", "papers")
	CSRFToken string         // CSRF token for forms and HTMX headers
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// notices maps the ?notice= codes set by redirects to flash messages.
var notices = map[string]Flash{
	"created":   {Type: "success", Message: "Saved successfully."},
	"updated":   {Type: "success", Message: "Changes saved."},
	"deleted":   {Type: "success", Message: "Deleted."},
	"copied":    {Type: "success", Message: "Paper copied. The copy is unpublished."},
	"not_found": {Type: "error", Message: "The requested item no longer exists."},
}

// NoticeFlashes returns the flash for the request's notice query parameter.
func NoticeFlashes(r *http.Request) []Flash {
	if f, ok := notices[r.URL.Query().Get("notice")]; ok {
		return []Flash{f}
	}
	return nil
}

// Renderer handles template parsing and execution for admin pages.
type Renderer struct {
	templates map[string]*template.Template
	fragments *template.Template
	funcMap   template.FuncMap
}

// New creates a Renderer by parsing all admin templates from the embedded
// filesystem. Each page template is paired with the base layout.
// When devMode is true, the layout shows a development badge.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "active"
				}
				return ""
			},
			"deref": func(s *string) string {
				if s == nil {
					return ""
				}
				return *s
			},
			"derefInt": func(i *int) string {
				if i == nil {
					return ""
				}
				return fmt.Sprint(*i)
			},
			"isDev": func() bool {
				return devMode
			},
			// catIndent prefixes a category name with non-breaking spaces
			// for hierarchical <select> options.
			"catIndent": func(depth int, name string) string {
				if depth == 0 {
					return name
				}
				return strings.Repeat("\u00A0\u00A0\u00A0\u00A0", depth) + name
			},
			"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
				return ptr != nil && *ptr == val
			},
			"idEq": func(a, b uuid.UUID) bool { return a == b },
			"add": func(a, b int) int { return a + b },
		},
	}

	pages, err := fs.Glob(adminFS, "templates/admin/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}

	for _, page := range pages {
		name := path.Base(page)
		if name == "base.html" {
			continue
		}
		tmpl, err := template.New("base.html").Funcs(r.funcMap).ParseFS(
			adminFS, "templates/admin/base.html", page,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}

	r.fragments, err = template.New("fragments").Funcs(r.funcMap).ParseFS(adminFS, "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}

	return r, nil
}

// Page renders a full admin page or an HTMX partial, depending on the
// request headers. For HTMX requests, only the "content" block is sent.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus is Page with an explicit status code, used to re-render
// forms with validation errors.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Flashes == nil {
		data.Flashes = NoticeFlashes(r)
	}

	execName := "base.html"
	if isHTMX(r) {
		execName = "content"
	}

	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("admin template failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(buf.String()))
}

// Fragment renders a named HTML fragment for HTMX swaps.
func (rn *Renderer) Fragment(w http.ResponseWriter, name string, data any) {
	var buf strings.Builder
	if err := rn.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("admin fragment failed", "fragment", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(buf.String()))
}

// isHTMX returns true for HTMX requests that target the content area.
// Boosted navigation and fragment swaps both send HX-Request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}
