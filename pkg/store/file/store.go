package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/killallgit/cognilink/pkg/store"
)

type fileStore struct {
	options store.Options
	dir     string
	lock    lockConfig
}

func (f *fileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (f *fileStore) Put(ctx context.Context, key string, value []byte) error {
	path := f.path(key)
	return withLock(path, f.lock, func() error {
		return atomicWrite(path, value, 0600)
	})
}

func (f *fileStore) Delete(ctx context.Context, key string) error {
	path := f.path(key)
	return withLock(path, f.lock, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	})
}

func (f *fileStore) Close() error {
	return nil
}

// NewStore keeps one JSON file per key under the location directory
func NewStore(opts ...store.Option) (store.Store, error) {
	options := store.NewOptions(opts...)
	if options.Location == "" {
		return nil, errors.New("file store requires a directory location")
	}
	if err := os.MkdirAll(options.Location, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &fileStore{
		options: options,
		dir:     options.Location,
		lock:    defaultLockConfig(),
	}, nil
}
