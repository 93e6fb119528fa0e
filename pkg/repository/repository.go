package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/store"
)

const (
	KeyAPIKey    = "cognilink-api-key"
	KeyAvatars   = "cognilink-avatars"
	KeyHistories = "cognilink-chat-histories"
)

// Repository maps the application's three slots onto a key-value store as JSON
type Repository struct {
	store store.Store
}

func New(s store.Store) *Repository {
	return &Repository{store: s}
}

// LoadAPIKey returns the stored key, or "" if none was saved
func (r *Repository) LoadAPIKey(ctx context.Context) (string, error) {
	var key *string
	found, err := r.load(ctx, KeyAPIKey, &key)
	if err != nil || !found || key == nil {
		return "", err
	}
	return *key, nil
}

func (r *Repository) SaveAPIKey(ctx context.Context, key string) error {
	return r.save(ctx, KeyAPIKey, key)
}

// ClearAPIKey forgets the key, as when the provider rejects it
func (r *Repository) ClearAPIKey(ctx context.Context) error {
	return r.store.Delete(ctx, KeyAPIKey)
}

// LoadAvatars returns the stored avatars in order; a missing or corrupt slot yields none
func (r *Repository) LoadAvatars(ctx context.Context) ([]avatar.Avatar, error) {
	var avatars []avatar.Avatar
	if _, err := r.load(ctx, KeyAvatars, &avatars); err != nil {
		return nil, err
	}
	return avatars, nil
}

func (r *Repository) SaveAvatars(ctx context.Context, avatars []avatar.Avatar) error {
	if avatars == nil {
		avatars = []avatar.Avatar{}
	}
	return r.save(ctx, KeyAvatars, avatars)
}

// LoadHistories returns every conversation, migrating legacy inline images once
func (r *Repository) LoadHistories(ctx context.Context) (chat.Histories, error) {
	data, err := r.store.Get(ctx, KeyHistories)
	if errors.Is(err, store.ErrNotFound) {
		return chat.Histories{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", KeyHistories, err)
	}

	histories, migrated, err := chat.DecodeHistories(data)
	if err != nil {
		r.discard(ctx, KeyHistories, err)
		return chat.Histories{}, nil
	}
	if migrated {
		logger.Info("Migrated legacy image fields in chat histories")
		if err := r.SaveHistories(ctx, histories); err != nil {
			logger.Error("Failed to write migrated chat histories: %v", err)
		}
	}
	return histories, nil
}

func (r *Repository) SaveHistories(ctx context.Context, histories chat.Histories) error {
	if histories == nil {
		histories = chat.Histories{}
	}
	return r.save(ctx, KeyHistories, histories)
}

// load decodes key into v. Corrupt values are logged and removed so the default applies.
func (r *Repository) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.discard(ctx, key, err)
		return false, nil
	}
	return true, nil
}

func (r *Repository) discard(ctx context.Context, key string, cause error) {
	logger.Error("Discarding corrupt value for %s: %v", key, cause)
	if err := r.store.Delete(ctx, key); err != nil {
		logger.Error("Failed to remove corrupt value for %s: %v", key, err)
	}
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

var (
	_ chat.Persister = (*Repository)(nil)
	_ avatar.Saver   = (*Repository)(nil)
)
