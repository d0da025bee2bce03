package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcphost/host/internal/config"
	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/internal/metrics"
	"github.com/mcphost/host/internal/sessions"
	"github.com/mcphost/host/internal/streamhub"
	"github.com/mcphost/host/internal/workflow"
)

// application owns every long-lived component the HTTP surface dispatches
// into. It is the wiring root: construction order here is the startup
// order, and close() reverses it.
type application struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *mcp.Registry
	sessions  *sessions.MemoryStore
	provider  llm.Provider
	hub       *streamhub.Hub
	executor  *workflow.Executor
	collector *metrics.Collector
	startedAt time.Time
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	provider, err := buildProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	sessionStore := sessions.NewMemoryStore(sessions.Config{
		MaxMessages:     cfg.Session.MaxMessages,
		IdleTimeout:     cfg.Session.IdleTimeout,
		CleanupInterval: cfg.Session.CleanupInterval,
	}, logger)

	registry := mcp.NewRegistry(logger, cfg.Inventory.ToolTimeout)
	if err := registry.LoadInventory(ctx, cfg.Inventory.Path); err != nil {
		if isNotExist(err) {
			logger.Warn("no inventory descriptor found, starting with an empty tool catalogue", "path", cfg.Inventory.Path)
		} else {
			sessionStore.Close()
			return nil, fmt.Errorf("loading inventory: %w", err)
		}
	}
	if cfg.Inventory.Watch {
		if err := registry.WatchInventory(ctx); err != nil {
			logger.Warn("inventory watch disabled", "error", err)
		}
	}

	hub := streamhub.New(logger)
	collector := metrics.NewCollector(sessionStore)
	executor := workflow.New(registry, sessionStore, provider, hub, collector, cfg.LLM.Model, logger)

	return &application{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		sessions:  sessionStore,
		provider:  provider,
		hub:       hub,
		executor:  executor,
		collector: collector,
		startedAt: time.Now(),
	}, nil
}

func buildProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: cfg.APIKey, DefaultModel: cfg.Model})
	case "anthropic", "":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{APIKey: cfg.APIKey, DefaultModel: cfg.Model})
	case "google":
		return llm.NewGoogleProvider(ctx, llm.GoogleConfig{APIKey: cfg.APIKey, DefaultModel: cfg.Model})
	case "bedrock":
		return llm.NewBedrockProvider(ctx, llm.BedrockConfig{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			DefaultModel:    cfg.Model,
		})
	default:
		return nil, fmt.Errorf("application: unknown llm provider %q", cfg.Provider)
	}
}

// close stops every background goroutine in reverse of construction
// order: the hub's heartbeat/sweep loops, the registry's subprocesses and
// inventory watch, then the session store's eviction loop.
func (a *application) close() {
	a.hub.Shutdown()
	if err := a.registry.Close(); err != nil {
		a.logger.Warn("registry close error", "error", err)
	}
	a.sessions.Close()
}
