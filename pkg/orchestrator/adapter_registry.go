package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// AdapterRegistry stores format adapters by name. Detection probes adapters
// in registration order.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]schema.FormatAdapter
	order    []string
}

// NewAdapterRegistry creates a registry holding the given adapters.
func NewAdapterRegistry(adapters ...schema.FormatAdapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[string]schema.FormatAdapter)}
	for _, adapter := range adapters {
		r.MustRegister(adapter)
	}
	return r
}

// Register adds an adapter by its Name(). Duplicate names return an error.
func (r *AdapterRegistry) Register(adapter schema.FormatAdapter) error {
	if adapter == nil {
		return fmt.Errorf("orchestrator: adapter is required")
	}
	name := normalizeAdapterName(adapter.Name())
	if name == "" {
		return fmt.Errorf("orchestrator: adapter name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("orchestrator: adapter %q already registered", name)
	}
	r.adapters[name] = adapter
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics on registration failure.
func (r *AdapterRegistry) MustRegister(adapter schema.FormatAdapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get retrieves an adapter by name.
func (r *AdapterRegistry) Get(name string) (schema.FormatAdapter, error) {
	key := normalizeAdapterName(name)
	if key == "" {
		return nil, fmt.Errorf("orchestrator: adapter name is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("orchestrator: adapter %q not found (have %s)", key, strings.Join(r.sortedNames(), ", "))
	}
	return adapter, nil
}

// List returns the adapter names in lexical order.
func (r *AdapterRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// Detect returns the adapters that claim the payload, in registration order.
func (r *AdapterRegistry) Detect(src schema.Source, raw []byte) []schema.FormatAdapter {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []schema.FormatAdapter
	for _, name := range r.order {
		if adapter := r.adapters[name]; adapter.Detect(src, raw) {
			matches = append(matches, adapter)
		}
	}
	return matches
}

func (r *AdapterRegistry) sortedNames() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

func normalizeAdapterName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
