package providers

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotSupported is returned when a model is not supported by any provider
	ErrModelNotSupported = errors.New("model not supported")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Registry manages provider instances and model mappings
type Registry struct {
	mu             sync.RWMutex
	providers      map[string]Provider
	modelProviders map[string]string // model -> provider name
	modelPrefixes  map[string]string // model prefix -> provider name
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers:      make(map[string]Provider),
		modelProviders: make(map[string]string),
		modelPrefixes:  make(map[string]string),
	}
}

// RegisterProvider registers a provider instance
func (r *Registry) RegisterProvider(provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	if _, exists := r.providers[name]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.providers[name] = provider
	for _, model := range provider.ListModels() {
		r.modelProviders[model] = name
	}

	return nil
}

// RegisterModelPrefix registers a model prefix to provider mapping (e.g., "gpt-" -> "openai")
func (r *Registry) RegisterModelPrefix(prefix, providerName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[providerName]; !exists {
		return ErrProviderNotFound
	}

	r.modelPrefixes[prefix] = providerName
	return nil
}

// GetProvider retrieves a provider by name
func (r *Registry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, ErrProviderNotFound
	}

	return provider, nil
}

// GetProviderForModel finds the provider that supports a given model
func (r *Registry) GetProviderForModel(model string) (Provider, error) {
	r.mu.RLock()
	if providerName, exists := r.modelProviders[model]; exists {
		if provider, ok := r.providers[providerName]; ok {
			r.mu.RUnlock()
			return provider, nil
		}
	}

	var found Provider
	for prefix, providerName := range r.modelPrefixes {
		if strings.HasPrefix(model, prefix) {
			if provider, ok := r.providers[providerName]; ok && provider.ValidateModel(model) == nil {
				found = provider
				break
			}
		}
	}
	if found == nil {
		for _, provider := range r.providers {
			if provider.ValidateModel(model) == nil {
				found = provider
				break
			}
		}
	}
	r.mu.RUnlock()

	if found == nil {
		return nil, ErrModelNotSupported
	}

	// Cache the mapping for future lookups
	r.mu.Lock()
	r.modelProviders[model] = found.Name()
	r.mu.Unlock()

	return found, nil
}

// ListProviders returns all registered provider names, sorted
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// GetProviderCount returns the number of registered providers
func (r *Registry) GetProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}
