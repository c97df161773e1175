package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Module is something built from one config section.
type Module interface {
	GetName() string
}

// ModuleFactory builds a module from its section.
type ModuleFactory func(section *Section) (Module, error)

// Registry maps section names to factories. Exact names win over prefixes;
// among prefixes the longest match wins.
type Registry struct {
	mu       sync.RWMutex
	exact    map[string]ModuleFactory
	prefixes map[string]ModuleFactory
	loaded   map[string]Module
}

// NewRegistry creates a new module registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:    make(map[string]ModuleFactory),
		prefixes: make(map[string]ModuleFactory),
		loaded:   make(map[string]Module),
	}
}

// Register adds a factory for an exact section name, e.g. "telemetry".
func (r *Registry) Register(name string, factory ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[name] = factory
}

// RegisterPrefix adds a factory for named sections such as
// [object carrier]. The prefix includes the trailing space.
func (r *Registry) RegisterPrefix(prefix string, factory ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes[prefix] = factory
}

// GetFactory returns the factory for a section name, or nil.
func (r *Registry) GetFactory(sectionName string) ModuleFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factoryLocked(sectionName)
}

func (r *Registry) factoryLocked(sectionName string) ModuleFactory {
	if factory, ok := r.exact[sectionName]; ok {
		return factory
	}
	var best string
	var found ModuleFactory
	for prefix, factory := range r.prefixes {
		if strings.HasPrefix(sectionName, prefix) && len(prefix) > len(best) {
			best, found = prefix, factory
		}
	}
	return found
}

// LoadModules builds a module for every section with a registered factory,
// in file order. Sections already loaded are reused.
func (r *Registry) LoadModules(cfg *Config) (map[string]Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	modules := make(map[string]Module)
	for _, section := range cfg.GetSections() {
		name := section.GetName()
		if m, ok := r.loaded[name]; ok {
			modules[name] = m
			continue
		}
		factory := r.factoryLocked(name)
		if factory == nil {
			continue
		}
		cfg.GetSectionOptional(name)
		module, err := factory(section)
		if err != nil {
			return nil, fmt.Errorf("failed to load module [%s]: %w", name, err)
		}
		modules[name] = module
		r.loaded[name] = module
	}
	return modules, nil
}

// GetModule returns a loaded module by section name, or nil.
func (r *Registry) GetModule(name string) Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded[name]
}

func (r *Registry) setModule(name string, m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m == nil {
		delete(r.loaded, name)
		return
	}
	r.loaded[name] = m
}

// GetLoadedModules returns all loaded modules.
func (r *Registry) GetLoadedModules() map[string]Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]Module, len(r.loaded))
	for k, v := range r.loaded {
		result[k] = v
	}
	return result
}

// Clear forgets every loaded module.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = make(map[string]Module)
}

// HasFactory checks if a factory is registered for the section name.
func (r *Registry) HasFactory(sectionName string) bool {
	return r.GetFactory(sectionName) != nil
}

// RegisteredNames returns the exact names, sorted.
func (r *Registry) RegisteredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.exact))
	for name := range r.exact {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisteredPrefixes returns the prefixes, sorted.
func (r *Registry) RegisteredPrefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := make([]string, 0, len(r.prefixes))
	for prefix := range r.prefixes {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}
