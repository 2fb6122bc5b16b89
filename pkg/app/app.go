// Package app wires configuration into the services shared by the CLI and
// the HTTP server.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mikeboe/search-helper/pkg/chat"
	"github.com/mikeboe/search-helper/pkg/clients"
	"github.com/mikeboe/search-helper/pkg/config"
	"github.com/mikeboe/search-helper/pkg/dialogue"
	"github.com/mikeboe/search-helper/pkg/research"
	"github.com/mikeboe/search-helper/pkg/research/tools"
)

type App struct {
	Config  *config.Config
	Catalog *dialogue.Catalog
	Engine  *research.Engine
	Chat    *chat.Service
	Logger  *slog.Logger
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// New builds the catalog, the collaborator clients, the relay engine and
// the session service from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	searcher := tools.NewSerperClient(cfg.SearchURL, cfg.SerperAPIKey, cfg.SearchTimeout)
	searcher.Logger = logger

	engine := research.NewEngine(research.Config{
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		TopP:              cfg.TopP,
		TopK:              cfg.TopK,
		RepetitionPenalty: cfg.RepetitionPenalty,
		Stop:              research.DefaultStop,
	}, searcher, completer)
	engine.Logger = logger

	svc := chat.NewService(catalog, engine)
	svc.Logger = logger

	logger.Debug("Application initialised",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"variants", catalog.Names())

	return &App{
		Config:  cfg,
		Catalog: catalog,
		Engine:  engine,
		Chat:    svc,
		Logger:  logger,
	}, nil
}

// LoadCatalog returns the builtin variants, overridden by cfg.VariantsFile
// when set, and checks the default variant exists.
func LoadCatalog(cfg *config.Config) (*dialogue.Catalog, error) {
	catalog, err := dialogue.LoadBuiltin()
	if err != nil {
		return nil, fmt.Errorf("failed to load builtin variants: %w", err)
	}
	if cfg.VariantsFile != "" {
		if err := catalog.LoadFile(cfg.VariantsFile); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultVariant != "" {
		if _, err := catalog.Get(cfg.DefaultVariant); err != nil {
			return nil, fmt.Errorf("DEFAULT_VARIANT: %w", err)
		}
	}
	return catalog, nil
}

func newCompleter(ctx context.Context, cfg *config.Config) (clients.Completer, error) {
	switch cfg.Provider {
	case config.ProviderTogether:
		return clients.NewTogetherClient(cfg.TogetherURL, cfg.TogetherAPIKey, cfg.LLMTimeout), nil
	case config.ProviderGemini:
		c, err := clients.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to init Gemini client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.Provider)
	}
}
