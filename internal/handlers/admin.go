// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for Prepify. Handlers are
// grouped by audience (admin back-office, public site) and receive their
// dependencies through the handler struct.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prepify/internal/cache"
	"prepify/internal/logger"
	"prepify/internal/render"
	"prepify/internal/tree"
)

// recentCacheLogEntries is how many invalidations the dashboard lists.
const recentCacheLogEntries = 10

// AIProviderInfo holds display information about a configured AI provider.
// Used by the Settings page to show which providers are available.
type AIProviderInfo struct {
	Name      string // "openai", "gemini", "claude", "mistral"
	Label     string // Human-friendly label
	HasKey    bool   // Whether an API key is configured
	Active    bool   // Whether this is the currently active provider
	Model     string // Configured model name
	KeyEnvVar string // Environment variable name for the key
}

// AIConfig holds the AI provider configuration visible to admin handlers.
// It never carries API keys.
type AIConfig struct {
	ActiveProvider string
	Providers      []AIProviderInfo
}

// Admin groups all back-office HTTP handlers and their dependencies.
type Admin struct {
	renderer   *render.Renderer
	categories Categories
	papers     Papers
	questions  Questions
	users      Users
	cacheLog   CacheLog
	pageCache  PageCache
	assistant  Assistant
	providers  Providers
	aiConfig   *AIConfig
}

// NewAdmin creates a new Admin handler group with the given dependencies.
// cacheLog, pageCache, assistant and providers may be nil.
func NewAdmin(renderer *render.Renderer, categories Categories, papers Papers, questions Questions, users Users, cacheLog CacheLog, pageCache PageCache, assistant Assistant, providers Providers, aiCfg *AIConfig) *Admin {
	if aiCfg == nil {
		aiCfg = &AIConfig{}
	}
	return &Admin{
		renderer:   renderer,
		categories: categories,
		papers:     papers,
		questions:  questions,
		users:      users,
		cacheLog:   cacheLog,
		pageCache:  pageCache,
		assistant:  assistant,
		providers:  providers,
		aiConfig:   aiCfg,
	}
}

// Dashboard renders the back-office landing page with catalog counts and
// the latest cache invalidations.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	paperCount, err := a.papers.Count(ctx)
	if err != nil {
		log.Error("count papers failed", "error", err)
	}
	questionCount, err := a.questions.Count(ctx)
	if err != nil {
		log.Error("count questions failed", "error", err)
	}
	userCount, err := a.users.Count(ctx)
	if err != nil {
		log.Error("count users failed", "error", err)
	}
	forest, err := a.categories.Tree(ctx)
	if err != nil {
		log.Error("load category tree failed", "error", err)
	}

	data := map[string]any{
		"PaperCount":    paperCount,
		"QuestionCount": questionCount,
		"UserCount":     userCount,
		"CategoryCount": len(tree.Flatten(forest)),
		"AIProvider":    "",
		"CacheLog":      nil,
	}
	if a.aiEnabled() {
		data["AIProvider"] = a.providers.ActiveName()
	}
	if a.cacheLog != nil {
		entries, err := a.cacheLog.RecentEntries(ctx, recentCacheLogEntries)
		if err != nil {
			log.Warn("load cache log failed", "error", err)
		}
		data["CacheLog"] = entries
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data:    data,
	})
}

// UsersList renders the site members page.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("list users failed", "error", err)
	}

	a.renderer.Page(w, r, "users_list", &render.PageData{
		Title:   "Users",
		Section: "users",
		Data:    map[string]any{"Items": users},
	})
}

// SettingsPage renders the AI provider settings.
func (a *Admin) SettingsPage(w http.ResponseWriter, r *http.Request) {
	if a.providers != nil {
		a.refreshAIConfig(a.providers.ActiveName())
	}
	a.renderer.Page(w, r, "settings", &render.PageData{
		Title:   "Settings",
		Section: "settings",
		Data: map[string]any{
			"Providers": a.aiConfig.Providers,
		},
	})
}

// refreshAIConfig marks activeName as the active provider for display.
func (a *Admin) refreshAIConfig(activeName string) {
	a.aiConfig.ActiveProvider = activeName
	for i := range a.aiConfig.Providers {
		a.aiConfig.Providers[i].Active = a.aiConfig.Providers[i].Name == activeName
	}
}

func (a *Admin) aiEnabled() bool {
	return a.assistant != nil && a.providers != nil && a.providers.Enabled()
}

// invalidateAll drops every cached public page. Category writes can change
// any breadcrumb, count or listing.
func (a *Admin) invalidateAll(ctx context.Context) {
	if a.pageCache != nil {
		a.pageCache.InvalidateAll(ctx)
	}
}

// invalidatePapers drops the listings that show papers and every cached
// page of the given paper slugs.
func (a *Admin) invalidatePapers(ctx context.Context, slugs ...string) {
	if a.pageCache == nil {
		return
	}
	a.pageCache.Invalidate(ctx, cache.HomeKey(), cache.CategoriesKey(), cache.PapersKey())
	a.pageCache.InvalidatePrefix(ctx, cache.CategoryKey(""))
	for _, s := range slugs {
		if s != "" {
			a.pageCache.InvalidatePrefix(ctx, cache.PaperPrefix(s))
		}
	}
}

// urlID parses a UUID route parameter, answering 400 when it is malformed.
func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// redirectNotice sends the browser to path with a flash notice code.
func redirectNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, path+"?notice="+notice, http.StatusSeeOther)
}
