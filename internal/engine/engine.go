// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine renders the public site. Page templates are embedded in
// the binary, compiled on first use together with the shared layout, and
// kept in an in-memory cache. Rendered output is returned as bytes so the
// handlers can store it in the Valkey page cache.
package engine

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"prepify/internal/markdown"
)

//go:embed templates/public/*.html templates/fragments/*.html
var templatesFS embed.FS

const (
	layoutFile   = "templates/public/layout.html"
	pageDir      = "templates/public/"
	fragmentDir  = "templates/fragments/"
	fragmentMark = "fragment:"
)

// SiteName is shown in page titles and the header.
const SiteName = "Prepify"

// Engine compiles and executes the public templates.
type Engine struct {
	cache *templateCache
	funcs template.FuncMap
}

// New creates an engine with an empty template cache.
func New() *Engine {
	return &Engine{
		cache: newTemplateCache(),
		funcs: template.FuncMap{
			"markdown": markdown.Render,
			"deref": func(s *string) string {
				if s == nil {
					return ""
				}
				return *s
			},
			"year": func(y *int) string {
				if y == nil {
					return ""
				}
				return strconv.Itoa(*y)
			},
			"add":         func(a, b int) int { return a + b },
			"categoryURL": CategoryURL,
			"paperURL":    func(slug string) string { return "/papers/" + slug },
			"join":        strings.Join,
		},
	}
}

// CategoryURL returns the public URL of a category slug path.
func CategoryURL(path string) string {
	return "/categories/" + strings.Trim(path, "/")
}

// Render executes a full page: the layout wrapped around the named page
// template. The page data is reachable as .Content inside the page.
func (e *Engine) Render(name string, meta Meta, content any) ([]byte, error) {
	tmpl, err := e.compile(name, func() (*template.Template, error) {
		return template.New("layout.html").Funcs(e.funcs).ParseFS(templatesFS, layoutFile, pageDir+name+".html")
	})
	if err != nil {
		return nil, err
	}

	if meta.Title == "" {
		meta.Title = SiteName
	} else {
		meta.Title += " | " + SiteName
	}
	return execute(tmpl, "layout.html", Page{Meta: meta, Content: content, Year: time.Now().Year()})
}

// RenderFragment executes a standalone HTML fragment, used for HTMX swaps.
func (e *Engine) RenderFragment(name string, data any) ([]byte, error) {
	tmpl, err := e.compile(fragmentMark+name, func() (*template.Template, error) {
		return template.New(name + ".html").Funcs(e.funcs).ParseFS(templatesFS, fragmentDir+name+".html")
	})
	if err != nil {
		return nil, err
	}
	return execute(tmpl, name+".html", data)
}

// Reset drops every compiled template.
func (e *Engine) Reset() {
	e.cache.invalidateAll()
}

func (e *Engine) compile(key string, parse func() (*template.Template, error)) (*template.Template, error) {
	if tmpl := e.cache.get(key); tmpl != nil {
		return tmpl, nil
	}
	tmpl, err := parse()
	if err != nil {
		return nil, fmt.Errorf("compile template %s: %w", key, err)
	}
	e.cache.put(key, tmpl)
	return tmpl, nil
}

func execute(tmpl *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
