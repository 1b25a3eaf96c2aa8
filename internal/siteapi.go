package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yitumuglobal/site-api/internal/config"
	"github.com/yitumuglobal/site-api/internal/contact"
	"github.com/yitumuglobal/site-api/internal/crypto"
	"github.com/yitumuglobal/site-api/internal/idp"
	"github.com/yitumuglobal/site-api/internal/log"
	"github.com/yitumuglobal/site-api/internal/ratelimit"
	"github.com/yitumuglobal/site-api/internal/server"
	"github.com/yitumuglobal/site-api/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// SiteAPI represents the complete site backend: the CMS OAuth relay and the
// contact form endpoint
type SiteAPI struct {
	config     config.Config
	httpServer *server.HTTPServer
	counter    storage.Counter
	cleanup    *storage.CleanupManager
	notifier   *contact.Notifier
}

// NewSiteAPI creates the application with all dependencies built
func NewSiteAPI(ctx context.Context, cfg config.Config) (*SiteAPI, error) {
	log.LogInfoWithFields("siteapi", "Building site API", map[string]any{
		"addr":      cfg.Addr,
		"baseURL":   cfg.BaseURL,
		"rateLimit": cfg.Contact.RateLimit != nil,
		"webhook":   cfg.Contact.WebhookURL != "",
	})

	app := &SiteAPI{config: cfg}

	var limiter server.RateLimiter
	if rl := cfg.Contact.RateLimit; rl != nil {
		counter, err := setupCounter(ctx, rl)
		if err != nil {
			return nil, fmt.Errorf("failed to setup rate limit storage: %w", err)
		}
		app.counter = counter

		hasher, err := crypto.NewKeyHasher([]byte(rl.KeySalt))
		if err != nil {
			_ = counter.Close()
			return nil, fmt.Errorf("failed to create key hasher: %w", err)
		}
		fixedWindow, err := ratelimit.NewFixedWindow(counter, hasher, rl.Limit, rl.Window)
		if err != nil {
			_ = counter.Close()
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		limiter = fixedWindow
		app.cleanup = storage.NewCleanupManager(counter, rl.CleanupInterval)
	}

	var notifier server.SubmissionNotifier
	if cfg.Contact.WebhookURL != "" {
		app.notifier = contact.NewNotifier(
			cfg.Contact.WebhookURL,
			cfg.Contact.WebhookTimeout,
			cfg.Contact.MaxDeliveries,
			&http.Client{Timeout: cfg.Contact.WebhookTimeout},
		)
		notifier = app.notifier
	}

	handler := BuildHTTPHandler(cfg, idp.NewGitHubProvider(cfg.OAuth), limiter, notifier)
	app.httpServer = server.NewHTTPServer(handler, cfg.Addr)

	return app, nil
}

// BuildHTTPHandler registers every route. A nil limiter or notifier turns the
// corresponding contact feature off.
func BuildHTTPHandler(cfg config.Config, provider idp.Provider, limiter server.RateLimiter, notifier server.SubmissionNotifier) http.Handler {
	mux := http.NewServeMux()

	authHandlers := server.NewAuthHandlers(provider, cfg.OAuth, cfg.BaseURL)
	contactHandlers := server.NewContactHandlers(limiter, notifier, cfg.Contact.ClientIPHeader)

	mux.HandleFunc("GET /api/auth", authHandlers.AuthorizeHandler)
	mux.HandleFunc("GET "+server.CallbackPath, authHandlers.CallbackHandler)

	contactHandler := server.ChainMiddleware(
		http.HandlerFunc(contactHandlers.SubmitHandler),
		server.NewCORSMiddleware(cfg.Contact.AllowedOrigins),
	)
	mux.Handle("POST /api/contact", contactHandler)
	mux.Handle("OPTIONS /api/contact", contactHandler)

	mux.Handle("GET /health", server.NewHealthHandler())

	return server.ChainMiddleware(mux,
		server.NewRecoverMiddleware("siteapi"),
		server.NewLoggerMiddleware("http"),
	)
}

// setupCounter creates the rate counter backend named by the config
func setupCounter(ctx context.Context, rl *config.RateLimitConfig) (storage.Counter, error) {
	switch rl.Storage {
	case config.StorageKindFirestore:
		log.LogInfoWithFields("storage", "Using Firestore rate counters", map[string]any{
			"project":    rl.GCPProject,
			"database":   rl.FirestoreDatabase,
			"collection": rl.FirestoreCollection,
		})
		return storage.NewFirestoreCounter(ctx, rl.GCPProject, rl.FirestoreDatabase, rl.FirestoreCollection)
	case config.StorageKindPostgres:
		log.LogInfoWithFields("storage", "Using Postgres rate counters", nil)
		return storage.NewPostgresCounter(ctx, string(rl.DatabaseURL))
	case config.StorageKindMemory:
		log.LogInfoWithFields("storage", "Using in-memory rate counters", nil)
		return storage.NewMemoryCounter(), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", rl.Storage)
	}
}

// Run starts and manages the application lifecycle until a signal or a
// server error
func (a *SiteAPI) Run() error {
	log.LogInfoWithFields("siteapi", "Starting site API", map[string]any{
		"addr": a.config.Addr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)

	go func() {
		if err := a.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if a.cleanup != nil {
		a.cleanup.Start(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("siteapi", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("siteapi", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("siteapi", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": shutdownTimeout.String(),
	})
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	return a.shutdown(shutdownCtx, shutdownReason)
}

// shutdown stops intake first, then drains webhook deliveries, then releases
// the counter store
func (a *SiteAPI) shutdown(ctx context.Context, reason string) error {
	var firstErr error

	if err := a.httpServer.Stop(ctx); err != nil {
		log.LogErrorWithFields("siteapi", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		firstErr = err
	}

	if a.notifier != nil {
		if err := a.notifier.Close(ctx); err != nil {
			log.LogWarnWithFields("siteapi", "Webhook deliveries abandoned", map[string]any{
				"error": err.Error(),
			})
		}
	}

	if a.cleanup != nil {
		a.cleanup.Stop()
	}

	if a.counter != nil {
		if err := a.counter.Close(); err != nil {
			log.LogErrorWithFields("siteapi", "Failed to close rate counter store", map[string]any{
				"error": err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	log.LogInfoWithFields("siteapi", "Application shutdown complete", map[string]any{
		"reason": reason,
	})
	return firstErr
}
