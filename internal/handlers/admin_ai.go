// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"prepify/internal/ai"
	"prepify/internal/logger"
	"prepify/internal/render"
	"prepify/internal/tree"
)

// aiText is the data of the "ai_text" fragment. Target is the id of the
// form field the Apply button fills.
type aiText struct {
	Target string
	Text   string
}

// AICategoryDescription drafts a category description from its name.
func (a *Admin) AICategoryDescription(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if !a.checkAIInput(w, name, "Enter a category name first.") {
		return
	}
	text, err := a.assistant.GenerateDescription(r.Context(), name)
	if err != nil {
		a.writeAIFailure(w, r, "category description", err)
		return
	}
	a.renderer.Fragment(w, "ai_text", aiText{Target: "description", Text: text})
}

// AIPaperDescription drafts a paper description from its title.
func (a *Admin) AIPaperDescription(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.FormValue("title"))
	if !a.checkAIInput(w, title, "Enter a paper title first.") {
		return
	}
	text, err := a.assistant.GeneratePaperDescription(r.Context(), title)
	if err != nil {
		a.writeAIFailure(w, r, "paper description", err)
		return
	}
	a.renderer.Fragment(w, "ai_text", aiText{Target: "description", Text: text})
}

// AICategorySEO suggests keywords, meta title and meta description for a
// category.
func (a *Admin) AICategorySEO(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if !a.checkAIInput(w, name, "Enter a category name first.") {
		return
	}
	details, err := a.assistant.GenerateSEODetails(r.Context(), name, strings.TrimSpace(r.FormValue("description")))
	if err != nil {
		a.writeAIFailure(w, r, "category seo", err)
		return
	}
	a.renderer.Fragment(w, "ai_seo", details)
}

// AIPaperSEO suggests keywords, meta title and meta description for a
// paper, using the name path of its category.
func (a *Admin) AIPaperSEO(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.FormValue("title"))
	if !a.checkAIInput(w, title, "Enter a paper title first.") {
		return
	}

	var year *int
	if y := formInt(r, "year"); y > 0 {
		year = &y
	}
	categoryPath := a.categoryNamePath(r.Context(), r.FormValue("category_id"))

	details, err := a.assistant.GeneratePaperSEODetails(r.Context(), title,
		strings.TrimSpace(r.FormValue("description")), categoryPath, year)
	if err != nil {
		a.writeAIFailure(w, r, "paper seo", err)
		return
	}
	a.renderer.Fragment(w, "ai_seo", details)
}

// AISetProvider switches the active AI provider from the settings page.
func (a *Admin) AISetProvider(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("provider"))
	log := logger.FromContext(r.Context())

	var failure string
	switch {
	case a.providers == nil:
		failure = "AI features are not configured."
	case name == "":
		failure = "No provider specified."
	default:
		if err := a.providers.SetActive(name); err != nil {
			log.Warn("failed to switch AI provider", "provider", name, "error", err)
			failure = fmt.Sprintf("Cannot switch to %q: provider not available (no API key configured).", name)
		}
	}

	if failure != "" {
		if r.Header.Get("HX-Request") == "true" {
			a.renderer.Fragment(w, "ai_error", failure)
			return
		}
		a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "settings", &render.PageData{
			Title:   "Settings",
			Section: "settings",
			Data:    map[string]any{"Providers": a.aiConfig.Providers},
			Flashes: []render.Flash{{Type: "error", Message: failure}},
		})
		return
	}

	a.refreshAIConfig(name)
	log.Info("ai provider switched", "provider", name)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/admin/settings?notice=updated")
		w.WriteHeader(http.StatusOK)
		return
	}
	redirectNotice(w, r, "/admin/settings", "updated")
}

// checkAIInput writes an error fragment and reports false when AI is off
// or the required input is blank.
func (a *Admin) checkAIInput(w http.ResponseWriter, input, missing string) bool {
	if !a.aiEnabled() {
		a.renderer.Fragment(w, "ai_error", "AI features are not configured.")
		return false
	}
	if input == "" {
		a.renderer.Fragment(w, "ai_error", missing)
		return false
	}
	return true
}

func (a *Admin) writeAIFailure(w http.ResponseWriter, r *http.Request, flow string, err error) {
	logger.FromContext(r.Context()).Warn("ai generation failed", "flow", flow, "error", err)
	a.renderer.Fragment(w, "ai_error", aiErrorMessage(err))
}

// categoryNamePath renders the category chain of id as "Science / Physics".
func (a *Admin) categoryNamePath(ctx context.Context, id string) string {
	cid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ""
	}
	forest, err := a.categories.Tree(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("load category tree failed", "error", err)
		return ""
	}
	var names []string
	for _, c := range tree.PathTo(forest, cid) {
		names = append(names, c.Name)
	}
	return strings.Join(names, " / ")
}

// aiErrorMessage turns an AI flow error into a sentence for visitors and
// editors. Provider details stay in the logs.
func aiErrorMessage(err error) string {
	switch {
	case errors.Is(err, ai.ErrUnsafePrompt):
		cats := strings.TrimPrefix(err.Error(), ai.ErrUnsafePrompt.Error())
		cats = strings.TrimPrefix(cats, ": ")
		if cats == "" {
			return "Your input was flagged by moderation. Please rephrase it and try again."
		}
		return fmt.Sprintf("Your input was flagged for: %s. Please rephrase it and try again.", cats)
	case errors.Is(err, ai.ErrEmptyResponse):
		return "The AI provider returned an empty answer. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI provider took too long to answer. Please try again."
	default:
		return "AI generation failed. Please try again later."
	}
}
