package platform

import (
	"fmt"
)

// Registry is the closed set of platform adapters. There is no plugin
// loading; new platforms are added here at compile time.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Get(platformName string) (Adapter, error) {
	adapter, ok := r.adapters[platformName]
	if !ok {
		return nil, NewError(KindConfig, platformName,
			fmt.Sprintf("no adapter registered for platform %q", platformName), nil)
	}
	return adapter, nil
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
