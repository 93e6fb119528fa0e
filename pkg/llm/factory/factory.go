package factory

import (
	"context"
	"errors"

	"github.com/killallgit/cognilink/pkg/config"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/llm/gemini"
	"github.com/killallgit/cognilink/pkg/llm/ollama"
	"github.com/killallgit/cognilink/pkg/llm/openai"
	"github.com/killallgit/cognilink/pkg/logger"
)

// NewRegistry registers every provider that can be built from cfg, preferring
// cfg.Provider for chats. apiKey overrides the configured Gemini key when set. The
// registry is returned with the error when the preferred provider is unavailable.
func NewRegistry(ctx context.Context, cfg *config.Config, apiKey string) (*llm.Registry, error) {
	registry := llm.NewRegistry(cfg.Provider)

	if apiKey == "" {
		apiKey = cfg.Gemini.APIKey
	}
	if p, err := gemini.New(ctx,
		llm.WithAPIKey(apiKey),
		llm.WithModel(cfg.Gemini.ChatModel),
		llm.WithProfileModel(cfg.Gemini.ProfileModel),
		llm.WithImageModel(cfg.Gemini.ImageModel),
	); err == nil {
		_ = registry.Add(p)
	} else if !errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, err
	}

	if p, err := ollama.New(
		llm.WithBaseURL(cfg.Ollama.URL),
		llm.WithModel(cfg.Ollama.Model),
	); err == nil {
		_ = registry.Add(p)
	} else {
		logger.Warn("Ollama provider unavailable: %v", err)
	}

	if p, err := openai.New(
		llm.WithAPIKey(cfg.OpenAI.APIKey),
		llm.WithBaseURL(cfg.OpenAI.BaseURL),
		llm.WithModel(cfg.OpenAI.Model),
	); err == nil {
		_ = registry.Add(p)
	}

	if _, err := registry.Chat(); err != nil {
		return registry, err
	}
	logger.Debug("Registered providers %v, chatting with %s", registry.Names(), registry.Preferred())
	return registry, nil
}
