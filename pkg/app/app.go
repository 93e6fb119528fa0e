package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/export"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/reconciler"
	"github.com/killallgit/cognilink/pkg/repository"
	"github.com/killallgit/cognilink/pkg/stream"
)

// ErrEmptyMessage is returned for a send with neither text nor attachment
var ErrEmptyMessage = errors.New("message has no text and no attachment")

type Option func(*options)

type options struct {
	reconcilerOpts []reconciler.Option
	avatarOpts     []avatar.ServiceOption
	now            func() time.Time
}

// WithReconcilerOptions forwards options such as the flush interval or locale
func WithReconcilerOptions(opts ...reconciler.Option) Option {
	return func(o *options) { o.reconcilerOpts = append(o.reconcilerOpts, opts...) }
}

func WithAvatarOptions(opts ...avatar.ServiceOption) Option {
	return func(o *options) { o.avatarOpts = append(o.avatarOpts, opts...) }
}

// WithClock sets the clock used for export dates
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// App ties avatars, conversation histories and the provider together
type App struct {
	avatars    *avatar.Service
	history    *chat.Manager
	provider   llm.Provider
	reconciler *reconciler.Reconciler
	now        func() time.Time
}

// New loads the stored avatars and histories and wires them to provider
func New(ctx context.Context, repo *repository.Repository, provider llm.Provider, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	stored, err := repo.LoadAvatars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load avatars: %w", err)
	}
	histories, err := repo.LoadHistories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat histories: %w", err)
	}

	history := chat.NewManager(histories, repo)

	avatarOpts := o.avatarOpts
	if images, ok := provider.(avatar.ImageGenerator); ok {
		avatarOpts = append([]avatar.ServiceOption{avatar.WithImageGenerator(images)}, avatarOpts...)
	}

	a := &App{
		avatars:    avatar.NewService(stored, provider, repo, history, avatarOpts...),
		history:    history,
		provider:   provider,
		reconciler: reconciler.New(history, append([]reconciler.Option{
			reconciler.WithSingleStream(),
			reconciler.WithClaim(history.Select),
		}, o.reconcilerOpts...)...),
		now:        o.now,
	}
	logger.Info("Loaded %d avatars, provider %s (%s)", len(stored), provider.Name(), provider.Model())
	return a, nil
}

func (a *App) Avatars() *avatar.Service {
	return a.avatars
}

func (a *App) Provider() llm.Provider {
	return a.provider
}

// Send selects the avatar and streams one exchange with it. Only one reply streams at a
// time: while any conversation is streaming Send returns ErrConversationBusy. Provider
// failures end in a canned reply, not an error.
func (a *App) Send(ctx context.Context, avatarID, text string, attachment *chat.Attachment, handler stream.Handler) (chat.Message, error) {
	user := chat.NewUserMessage(text, attachment)
	if user.IsEmpty() {
		return chat.Message{}, ErrEmptyMessage
	}

	persona, err := a.avatars.Get(avatarID)
	if err != nil {
		return chat.Message{}, err
	}
	if a.reconciler.Tracker().AnyActive() {
		return chat.Message{}, fmt.Errorf("%w: a reply is streaming", reconciler.ErrConversationBusy)
	}

	// The history already ends with the user message and the placeholder when the stream opens
	open := func(ctx context.Context) (stream.TextStream, error) {
		return a.provider.OpenStream(ctx, llm.Request{
			Persona: llm.PersonaFor(persona),
			History: chat.WithoutTrailing(a.history.History(avatarID), 2),
			Message: user,
		})
	}
	return a.reconciler.Send(ctx, avatarID, user, open, handler)
}

// Select makes avatarID the active conversation
func (a *App) Select(avatarID string) error {
	return a.avatars.Select(avatarID)
}

// History returns a copy of the avatar's conversation
func (a *App) History(avatarID string) ([]chat.Message, error) {
	if _, err := a.avatars.Get(avatarID); err != nil {
		return nil, err
	}
	return a.history.History(avatarID), nil
}

// ClearHistory empties the avatar's conversation unless a reply is streaming into it
func (a *App) ClearHistory(avatarID string) error {
	if _, err := a.avatars.Get(avatarID); err != nil {
		return err
	}
	if a.reconciler.IsStreaming(avatarID) {
		return fmt.Errorf("%w: %s", reconciler.ErrConversationBusy, avatarID)
	}
	a.history.Clear(avatarID)
	return nil
}

// Export renders the conversation as Markdown with a suggested file name
func (a *App) Export(avatarID string) (fileName, markdown string, err error) {
	persona, err := a.avatars.Get(avatarID)
	if err != nil {
		return "", "", err
	}
	now := a.now()
	return export.FileName(persona.Name, now), export.Markdown(persona.Name, a.history.History(avatarID), now), nil
}

func (a *App) IsStreaming(avatarID string) bool {
	return a.reconciler.IsStreaming(avatarID)
}

// DeleteAvatar removes the avatar and its conversation unless a reply is streaming into it
func (a *App) DeleteAvatar(ctx context.Context, avatarID string) error {
	if a.reconciler.IsStreaming(avatarID) {
		return fmt.Errorf("%w: %s", reconciler.ErrConversationBusy, avatarID)
	}
	return a.avatars.Delete(ctx, avatarID)
}
