package clean

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]EntitySpec)
	registryMu sync.RWMutex
)

// Register adds an entity spec to the registry.
// Panics if a spec with the same entity tag is already registered.
func Register(spec EntitySpec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[spec.Entity]; exists {
		panic(fmt.Sprintf("entity already registered: %s", spec.Entity))
	}

	registry[spec.Entity] = spec
}

// Get returns an entity spec by tag.
// Returns false if not found.
func Get(entity string) (EntitySpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	spec, ok := registry[entity]
	return spec, ok
}

// All returns all registered entity specs, sorted by entity tag for
// consistent ordering.
func All() []EntitySpec {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntitySpec, 0, len(registry))
	for _, spec := range registry {
		result = append(result, spec)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Entity < result[j].Entity
	})

	return result
}

// EntityCount returns the number of registered entity specs.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
