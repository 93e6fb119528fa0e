package factory

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/killallgit/cognilink/pkg/config"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/store"
	"github.com/killallgit/cognilink/pkg/store/file"
	"github.com/killallgit/cognilink/pkg/store/memory"
	"github.com/killallgit/cognilink/pkg/store/postgres"
	"github.com/killallgit/cognilink/pkg/store/sqlite"
)

// Open builds the store selected by storage.backend
func Open(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	logger.Debug("Opening %s store", cfg.Backend)

	switch cfg.Backend {
	case "memory":
		return memory.NewStore(), nil
	case "", "file":
		return file.NewStore(store.WithLocation(cfg.Path), store.WithContext(ctx))
	case "sqlite":
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "cognilink.db")
		}
		return sqlite.NewStore(store.WithLocation(path), store.WithContext(ctx))
	case "postgres":
		return postgres.NewStore(store.WithLocation(cfg.DSN), store.WithContext(ctx))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
