package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	ErrUnknownSource     = errors.New("unknown data source type")
	ErrSourceNotAdded    = errors.New("data source not added")
	ErrSourceUnavailable = errors.New("data source is not available")
)

// Constructor builds a source from its configuration.
type Constructor func(cfg Config) (Source, error)

// Registry maps source names to constructors and holds the configured,
// live source instances. One registry is constructed at process start and
// handed to the engine; there is no package-level instance.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	sources      map[string]Source
}

// NewRegistry returns a registry pre-loaded with the built-in source
// types (twitter, reddit, demo) and no configured instances.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		sources:      make(map[string]Source),
	}
	r.RegisterType(TwitterName, func(cfg Config) (Source, error) { return NewTwitter(cfg), nil })
	r.RegisterType(RedditName, func(cfg Config) (Source, error) { return NewReddit(cfg), nil })
	r.RegisterType(DemoName, func(cfg Config) (Source, error) { return NewDemo(cfg), nil })
	return r
}

// RegisterType adds a source constructor under name, replacing any
// previous registration.
func (r *Registry) RegisterType(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// Add builds and installs a source instance from cfg. The source type must
// be registered and the built source must report itself available.
func (r *Registry) Add(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctor, ok := r.constructors[cfg.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Name)
	}
	src, err := ctor(cfg)
	if err != nil {
		return fmt.Errorf("constructing source %q: %w", cfg.Name, err)
	}
	if !src.Available() {
		return fmt.Errorf("%w: %q (missing configuration?)", ErrSourceUnavailable, cfg.Name)
	}
	r.sources[cfg.Name] = src
	return nil
}

// Remove uninstalls the named source instance.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[name]; !ok {
		return fmt.Errorf("%w: %q", ErrSourceNotAdded, name)
	}
	delete(r.sources, name)
	return nil
}

// Get returns the installed source instance for name.
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

// Enabled returns the installed sources that are currently available,
// sorted by name for deterministic fan-out order.
func (r *Registry) Enabled() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		if src.Available() {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Types lists the registered source type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
