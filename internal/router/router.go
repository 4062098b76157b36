// Package router sets up all HTTP routes and middleware chains for
// Prepify. It organizes routes into the public site and the admin
// back-office with their own middleware stacks.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prepify/internal/handlers"
	"prepify/internal/middleware"
	"prepify/web"
)

// Options carries the collaborators of the router. Visitors and AILimiter
// may be nil, which disables visitor sessions and AI rate limiting.
type Options struct {
	Visitors      middleware.VisitorSessions
	AILimiter     *middleware.RateLimiter
	Admin         *handlers.Admin
	Public        *handlers.Public
	SecureCookies bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(opts.SecureCookies))
		adminRoutes(r, opts.Admin)
		publicRoutes(r, opts)
	})

	r.NotFound(opts.Public.NotFound)
	return r
}

func adminRoutes(r chi.Router, admin *handlers.Admin) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", admin.Dashboard)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", admin.CategoriesList)
			r.Get("/new", admin.CategoryNew)
			r.Post("/", admin.CategoryCreate)
			r.Get("/{id}", admin.CategoryEdit)
			r.Post("/{id}", admin.CategoryUpdate)
			r.Post("/{id}/delete", admin.CategoryDelete)
			r.Post("/{id}/featured", admin.CategoryFeatured)
			r.Post("/{id}/published", admin.CategoryPublished)
		})

		r.Route("/papers", func(r chi.Router) {
			r.Get("/", admin.PapersList)
			r.Get("/new", admin.PaperNew)
			r.Post("/", admin.PaperCreate)
			r.Get("/{id}", admin.PaperEdit)
			r.Post("/{id}", admin.PaperUpdate)
			r.Post("/{id}/delete", admin.PaperDelete)
			r.Get("/{id}/copy", admin.PaperCopyForm)
			r.Post("/{id}/copy", admin.PaperCopy)
			r.Post("/{id}/featured", admin.PaperFeatured)
			r.Post("/{id}/published", admin.PaperPublished)

			r.Route("/{id}/questions", func(r chi.Router) {
				r.Get("/", admin.QuestionsList)
				r.Get("/new", admin.QuestionNew)
				r.Post("/", admin.QuestionCreate)
				r.Get("/{qid}", admin.QuestionEdit)
				r.Post("/{qid}", admin.QuestionUpdate)
				r.Post("/{qid}/delete", admin.QuestionDelete)
			})
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/category-description", admin.AICategoryDescription)
			r.Post("/category-seo", admin.AICategorySEO)
			r.Post("/paper-description", admin.AIPaperDescription)
			r.Post("/paper-seo", admin.AIPaperSEO)
			r.Post("/provider", admin.AISetProvider)
		})

		r.Get("/users", admin.UsersList)
		r.Get("/settings", admin.SettingsPage)
	})
}

func publicRoutes(r chi.Router, opts Options) {
	public := opts.Public

	r.Group(func(r chi.Router) {
		if opts.Visitors != nil {
			r.Use(middleware.LoadVisitor(opts.Visitors))
		}

		r.Get("/", public.Home)
		r.Get("/categories", public.Categories)
		r.Get("/categories/*", public.Category)
		r.Get("/papers", public.Papers)
		r.Get("/papers/{slug}", public.Paper)
		r.Get("/test/{slug}", public.TestForm)
		r.Post("/test/{slug}", public.TestSubmit)
		r.Get("/results/{id}", public.Results)

		// AI fragments call paid providers.
		r.Group(func(r chi.Router) {
			if opts.AILimiter != nil {
				r.Use(opts.AILimiter.Middleware)
			}
			r.Post("/results/{id}/feedback/{qid}", public.ResultFeedback)
			r.Post("/results/{id}/recommendations", public.ResultRecommendations)
		})
	})
}

// staticHandler serves the embedded stylesheets under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
