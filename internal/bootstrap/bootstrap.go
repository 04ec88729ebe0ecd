// Package bootstrap builds the long-lived dependencies shared by the
// entrypoints from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"

	"go-hrskip-automation/internal/ai"
	"go-hrskip-automation/internal/browser"
	"go-hrskip-automation/internal/cache"
	"go-hrskip-automation/internal/config"
	"go-hrskip-automation/internal/database"
	"go-hrskip-automation/internal/discovery"
	"go-hrskip-automation/internal/mailer"
	"go-hrskip-automation/internal/scraper"
	"go-hrskip-automation/internal/store"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

// Engine is a browser engine that can be shut down.
type Engine interface {
	browser.Launcher
	io.Closer
}

// NewStore opens Postgres when a database URL is configured, else the JSON
// file store. The returned func releases the store.
func NewStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Database.URL == "" {
		st, err := store.OpenFile(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		log.Printf("💾 Using file store at %s", cfg.Store.Path)
		return st, func() {}, nil
	}

	repo, err := database.ConnectDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}
	log.Println("🐘 Connected to Postgres")
	return repo, repo.Close, nil
}

// NewRedis connects when a URL is set. Without one, or when the server is
// unreachable, the result still works with in-process locks.
func NewRedis(ctx context.Context, cfg *config.Config) *cache.Redis {
	if cfg.Redis.URL == "" {
		return cache.NewRedis(nil)
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		log.Printf("⚠️ Redis unavailable, using local locks: %v", err)
		return cache.NewRedis(nil)
	}
	log.Println("🧱 Connected to Redis")
	return cache.NewRedis(client)
}

func NewEngine(cfg *config.Config) (Engine, error) {
	opts := browser.Options{
		Headless:      *cfg.Browser.Headless,
		UserAgent:     cfg.Browser.UserAgent,
		MaxSessions:   cfg.Browser.MaxSessions,
		CookiesPath:   cfg.Browser.CookiesPath,
		ScreenshotDir: cfg.Browser.ScreenshotDir,
		Humanize:      cfg.Browser.Humanize,
	}
	switch cfg.Browser.Engine {
	case "chromedp":
		return browser.NewChromedp(opts), nil
	default:
		pm, err := browser.NewPlaywright(opts)
		if err != nil {
			return nil, err
		}
		return pm, nil
	}
}

func NewProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	if err := cfg.RequireLLMKey(); err != nil {
		return nil, err
	}
	switch cfg.LLM.Provider {
	case "gemini":
		g, err := ai.NewGeminiProvider(ctx, cfg.LLM.APIKey, cfg.LLM.BaseURL)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		endpoint := cfg.LLM.BaseURL
		if endpoint == "" {
			endpoint = openAIURL
		}
		return ai.NewOpenAIProvider("openai", cfg.LLM.APIKey, endpoint, cfg.LLM.Timeout), nil
	default:
		return ai.NewOpenAIProvider("groq", cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout), nil
	}
}

// NewClassifier builds the configured LLM provider behind a Classifier. It
// fails fast on a missing API key.
func NewClassifier(ctx context.Context, cfg *config.Config) (*ai.Classifier, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	classifier := ai.NewClassifier(provider, ai.Options{
		Model:             cfg.LLM.Model,
		Temperature:       *cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	log.Printf("🧠 Classifier ready (%s, %s)", provider.Name(), cfg.LLM.Model)
	return classifier, nil
}

// NewDiscovery wires the orchestrator over engine.
func NewDiscovery(cfg *config.Config, engine browser.Launcher, classifier discovery.Classifier) *discovery.Orchestrator {
	return discovery.New(engine, classifier, scraper.Stub{},
		discovery.WithNavigationTimeout(cfg.Browser.Timeout),
	)
}

// NewDispatcher builds the SMTP-backed dispatcher and checks the server
// accepts our credentials.
func NewDispatcher(ctx context.Context, cfg *config.Config) (*mailer.Dispatcher, error) {
	transport, err := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Timeout:  cfg.SMTP.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := transport.Verify(ctx); err != nil {
		return nil, fmt.Errorf("smtp verify: %w", err)
	}
	log.Printf("📧 SMTP ready (%s:%d)", cfg.SMTP.Host, cfg.SMTP.Port)
	return mailer.NewDispatcher(transport, cfg.SMTP.From, cfg.SMTP.Timeout), nil
}
