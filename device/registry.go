package device

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a device instance of a registered kind.
type Factory func(o *Options) (Device, error)

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register registers a device kind for creation by name. It should be
// called from device package init() functions. Names are
// case-insensitive.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(kind)] = f
}

// New creates a device of the named kind. Lookup is case-insensitive.
func New(kind string, o *Options) (Device, error) {
	registryMu.RLock()
	f := registry[strings.ToLower(kind)]
	registryMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unknown device kind %q", kind)
	}
	return f(o)
}

// Kinds returns the sorted names of all registered device kinds.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
