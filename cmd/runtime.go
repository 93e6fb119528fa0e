package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peterh/liner"

	"github.com/killallgit/cognilink/pkg/app"
	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/config"
	"github.com/killallgit/cognilink/pkg/console"
	"github.com/killallgit/cognilink/pkg/llm"
	llmfactory "github.com/killallgit/cognilink/pkg/llm/factory"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/reconciler"
	"github.com/killallgit/cognilink/pkg/repository"
	"github.com/killallgit/cognilink/pkg/store"
	storefactory "github.com/killallgit/cognilink/pkg/store/factory"
)

// runtime holds what a command opened; Close releases it
type runtime struct {
	cfg      *config.Config
	store    store.Store
	repo     *repository.Repository
	registry *llm.Registry
	app      *app.App
}

// openRepository opens storage only, for commands that never call a provider
func openRepository(ctx context.Context) (*runtime, error) {
	cfg := config.Get()
	s, err := storefactory.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	return &runtime{cfg: cfg, store: s, repo: repository.New(s)}, nil
}

// openApp opens storage and the configured provider. When the Gemini key is missing
// and promptForKey is set, the key is asked for on the terminal and stored.
func openApp(ctx context.Context, promptForKey bool) (*runtime, error) {
	rt, err := openRepository(ctx)
	if err != nil {
		return nil, err
	}

	apiKey, err := rt.repo.LoadAPIKey(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	registry, err := llmfactory.NewRegistry(ctx, rt.cfg, apiKey)
	if errors.Is(err, llm.ErrMissingAPIKey) && promptForKey && rt.cfg.Provider != "openai" && console.IsTTY() {
		apiKey, err = readAPIKey()
		if err == nil {
			if err = rt.repo.SaveAPIKey(ctx, apiKey); err == nil {
				registry, err = llmfactory.NewRegistry(ctx, rt.cfg, apiKey)
			}
		}
	}
	if err != nil {
		rt.Close()
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: run `cognilink key set` or set GEMINI_API_KEY", err)
		}
		return nil, err
	}
	rt.registry = registry

	provider, err := registry.Chat()
	if err != nil {
		rt.Close()
		return nil, err
	}

	a, err := app.New(ctx, rt.repo, provider,
		app.WithReconcilerOptions(
			reconciler.WithFlushInterval(rt.cfg.Stream.FlushInterval),
			reconciler.WithMessages(reconciler.MessagesFor(rt.cfg.Locale)),
		),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.app = a
	return rt, nil
}

// avatars builds an avatar service without a provider. Generating avatars is not possible
// through it; listing, importing and editing are.
func (rt *runtime) avatars(ctx context.Context) (*avatar.Service, *chat.Manager, error) {
	stored, err := rt.repo.LoadAvatars(ctx)
	if err != nil {
		return nil, nil, err
	}
	histories, err := rt.repo.LoadHistories(ctx)
	if err != nil {
		return nil, nil, err
	}
	manager := chat.NewManager(histories, rt.repo)
	return avatar.NewService(stored, nil, rt.repo, manager), manager, nil
}

// resolveAvatar finds an avatar by id or case-insensitive name; empty selects the first one
func resolveAvatar(list []avatar.Avatar, ref string) (avatar.Avatar, error) {
	if len(list) == 0 {
		return avatar.Avatar{}, errors.New("no avatars yet: create one with `cognilink avatar create`")
	}
	if ref == "" {
		return list[0], nil
	}
	for _, a := range list {
		if a.ID == ref {
			return a, nil
		}
	}
	for _, a := range list {
		if strings.EqualFold(a.Name, ref) {
			return a, nil
		}
	}
	return avatar.Avatar{}, fmt.Errorf("%w: %s", avatar.ErrNotFound, ref)
}

func (rt *runtime) Close() {
	if rt.store == nil {
		return
	}
	if err := rt.store.Close(); err != nil {
		logger.Warn("Failed to close storage: %v", err)
	}
}

func readAPIKey() (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	key, err := line.PasswordPrompt("Gemini API key: ")
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", llm.ErrMissingAPIKey
	}
	return key, nil
}
