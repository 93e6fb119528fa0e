package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultProvider answers chats when no provider is configured
const DefaultProvider = "gemini"

// ErrUnknownProvider is returned for a provider name no adapter implements
var ErrUnknownProvider = errors.New("unknown provider")

// keyed providers are only built when an API key is available
var keyed = map[string]bool{"gemini": true, "openai": true}

// Registry holds every provider that could be built from configuration. The preferred
// one answers chats and generates avatars; the others are listed alongside it.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	preferred string
}

func NewRegistry(preferred string) *Registry {
	if preferred == "" {
		preferred = DefaultProvider
	}
	return &Registry{
		providers: make(map[string]Provider),
		preferred: preferred,
	}
}

// Add registers provider under its Name
func (r *Registry) Add(provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	r.providers[name] = provider
	return nil
}

func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names lists the registered providers in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Preferred() string {
	return r.preferred
}

// Chat returns the preferred provider. A keyed provider that could not be built
// reports ErrMissingAPIKey, any other absent name ErrUnknownProvider.
func (r *Registry) Chat() (Provider, error) {
	if p, ok := r.Lookup(r.preferred); ok {
		return p, nil
	}
	if keyed[r.preferred] {
		return nil, fmt.Errorf("%s: %w", r.preferred, ErrMissingAPIKey)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProvider, r.preferred)
}
