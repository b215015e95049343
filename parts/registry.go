package parts

import (
	"fmt"
	"sync"
)

var (
	muBuilders sync.RWMutex
	builders   = map[string]Builder{}
)

// RegisterBuilder installs a builder for a given part type tag, called from
// each variant's init() — grounded on
// services/hal/registry.go's RegisterBuilder, which panics on a duplicate
// registration to catch a copy-paste type-tag mistake at program start
// rather than silently shadowing one variant with another.
func RegisterBuilder(typ string, b Builder) {
	muBuilders.Lock()
	defer muBuilders.Unlock()
	if typ == "" {
		panic("parts: empty type tag for builder")
	}
	if _, exists := builders[typ]; exists {
		panic(fmt.Sprintf("parts: builder already registered for type %q", typ))
	}
	builders[typ] = b
}

// Build looks up the builder for in.Config.Type and constructs a Part.
func Build(in BuildInput) (Part, error) {
	muBuilders.RLock()
	b, ok := builders[in.Config.Type]
	muBuilders.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown part type %q", in.Config.Type)
	}
	return b.Build(in)
}
