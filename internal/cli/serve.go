package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"prepify/internal/ai"
	"prepify/internal/cache"
	"prepify/internal/config"
	"prepify/internal/database"
	"prepify/internal/engine"
	"prepify/internal/handlers"
	"prepify/internal/middleware"
	"prepify/internal/render"
	"prepify/internal/router"
	"prepify/internal/scheduler"
	"prepify/internal/session"
	"prepify/internal/store"
)

// aiRateWindow is the window AI_RATE_LIMIT is counted over.
const aiRateWindow = time.Minute

var (
	serveSkipMigrate bool
	serveWarmEvery   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Connect to PostgreSQL and Valkey, apply pending migrations and serve
the public site and the admin back-office until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveSkipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	serveCmd.Flags().DurationVar(&serveWarmEvery, "warm-every", time.Minute, "category snapshot warm-up interval (0 disables)")
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if !serveSkipMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Demo catalog for local work; a no-op once data exists.
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	valkey, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkey.Close()

	app, err := newApp(cfg, db, valkey)
	if err != nil {
		return err
	}

	sched := scheduler.New(app.maintenance, time.UTC)
	if _, err := sched.SchedulePrune(cfg.PruneSchedule); err != nil {
		return err
	}
	if serveWarmEvery > 0 {
		if _, err := sched.ScheduleWarm(serveWarmEvery); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	// WriteTimeout covers AI fragments waiting on a provider.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// app holds the wired HTTP handler and the maintenance jobs sharing its
// stores.
type app struct {
	handler     http.Handler
	maintenance *scheduler.Maintenance
}

func newApp(cfg *config.Config, db *sql.DB, valkey *redis.Client) (*app, error) {
	secureCookies := !cfg.IsDev()
	sessions := session.NewStore(valkey, secureCookies)

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return nil, fmt.Errorf("initialize template renderer: %w", err)
	}
	eng := engine.New()

	cacheLog := store.NewCacheLogStore(db)
	categories := store.NewCategoryStore(db, cache.NewSnapshotCache(valkey, cfg.CategoryCacheTTL), cacheLog)
	papers := store.NewPaperStore(db, cacheLog)
	questions := store.NewQuestionStore(db, cacheLog)
	attempts := store.NewAttemptStore(db)
	users := store.NewUserStore(db)
	pageCache := cache.NewPageCache(valkey, cache.DefaultPageTTL)

	registry := ai.NewRegistry(cfg.AIProvider, aiProviderConfigs(cfg))
	slog.Info("ai providers initialized",
		"active", registry.ActiveName(),
		"available", registry.Available(),
	)
	assistant := ai.NewAssistant(registry)

	admin := handlers.NewAdmin(renderer, categories, papers, questions, users, cacheLog, pageCache, assistant, registry, aiSettings(cfg))
	public := handlers.NewPublic(eng, categories, papers, questions, attempts, pageCache, assistant, registry, sessions)

	var limiter *middleware.RateLimiter
	if cfg.AIRateLimit > 0 {
		limiter = middleware.NewRateLimiter(valkey, "ratelimit:ai:", cfg.AIRateLimit, aiRateWindow)
	}

	handler := router.New(router.Options{
		Visitors:      sessions,
		AILimiter:     limiter,
		Admin:         admin,
		Public:        public,
		SecureCookies: secureCookies,
	})

	return &app{
		handler: handler,
		maintenance: &scheduler.Maintenance{
			Attempts:   attempts,
			CacheLog:   cacheLog,
			Categories: categories,
			Retention:  cfg.AttemptRetention,
		},
	}, nil
}

func aiProviderConfigs(cfg *config.Config) map[string]ai.ProviderConfig {
	return map[string]ai.ProviderConfig{
		ai.OpenAI:  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		ai.Gemini:  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL},
		ai.Claude:  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		ai.Mistral: {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	}
}

// aiSettings describes the providers for the settings page without keys.
func aiSettings(cfg *config.Config) *handlers.AIConfig {
	info := func(name, label, key, model, envVar string) handlers.AIProviderInfo {
		return handlers.AIProviderInfo{
			Name:      name,
			Label:     label,
			HasKey:    key != "",
			Active:    cfg.AIProvider == name,
			Model:     model,
			KeyEnvVar: envVar,
		}
	}
	return &handlers.AIConfig{
		ActiveProvider: cfg.AIProvider,
		Providers: []handlers.AIProviderInfo{
			info(ai.OpenAI, "OpenAI", cfg.OpenAIKey, cfg.OpenAIModel, "OPENAI_API_KEY"),
			info(ai.Gemini, "Google Gemini", cfg.GeminiKey, cfg.GeminiModel, "GEMINI_API_KEY"),
			info(ai.Claude, "Anthropic Claude", cfg.ClaudeKey, cfg.ClaudeModel, "CLAUDE_API_KEY"),
			info(ai.Mistral, "Mistral", cfg.MistralKey, cfg.MistralModel, "MISTRAL_API_KEY"),
		},
	}
}
