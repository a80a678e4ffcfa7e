package catalog

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]ObjectDefinition)
	registryMu sync.RWMutex
)

// Register adds a built-in object definition.
// Panics if an object with the same name is already registered.
func Register(def ObjectDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("object already registered: %s", def.Name))
	}

	for i := range def.Fields {
		def.Fields[i].Object = def.Name
		if def.Fields[i].Type == "" {
			def.Fields[i].Type = TypeText
		}
	}

	registry[def.Name] = def
}

// Get returns a registered object definition.
func Get(name string) (ObjectDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// All returns every registered object, sorted by name.
func All() []ObjectDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ObjectDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Clear removes all registered objects.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ObjectDefinition)
}
