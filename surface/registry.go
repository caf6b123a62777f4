// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// BackendImage is the name of the built-in CPU backend.
const BackendImage = "image"

// SurfaceFactory creates a new Surface with the given options.
// Implementations should validate options and return descriptive errors.
type SurfaceFactory func(opts Options) (Surface, error)

// RegistryEntry represents a registered surface backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	Priority int

	// Factory creates surface instances.
	Factory SurfaceFactory

	// Available reports if the backend is available on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

func init() {
	Register(BackendImage, 10, newImageSurfaceFromOptions, nil)
}

// newImageSurfaceFromOptions is the factory of the built-in backend.
func newImageSurfaceFromOptions(opts Options) (Surface, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, &InvalidSizeError{Width: opts.Width, Height: opts.Height}
	}
	s := NewImageSurface(opts.Width, opts.Height)
	if opts.BackgroundColor != nil {
		s.Clear(opts.BackgroundColor)
	}
	return s, nil
}

// Registry manages registered surface backends.
//
// Hosts select a backend by name from configuration, so alternative
// targets (for example a surface writing straight into a framebuffer) can
// be plugged in without touching the renderer.
//
// Example usage:
//
//	s, err := surface.NewSurfaceByName("image", 800, 600)
//	// or auto-select best available:
//	s, err := surface.NewSurface(800, 600)
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and NewSurface.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry.
//
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory SurfaceFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// NewSurface creates a surface using the best available backend.
// Returns an error if no backends are available.
func NewSurface(width, height int) (Surface, error) {
	return globalRegistry.NewSurface(DefaultOptions(width, height))
}

// NewSurfaceByName creates a surface using a specific named backend.
func NewSurfaceByName(name string, width, height int) (Surface, error) {
	return globalRegistry.NewSurfaceByName(name, DefaultOptions(width, height))
}

// NewSurfaceByNameWithOptions creates a surface using a specific backend.
func NewSurfaceByNameWithOptions(name string, opts Options) (Surface, error) {
	return globalRegistry.NewSurfaceByName(name, opts)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory SurfaceFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}

	if available == nil {
		available = func() bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Get returns information about a specific backend.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	// Return a copy to prevent modification
	entryCopy := *entry
	return &entryCopy, true
}

// NewSurface creates a surface using the best available backend.
func (r *Registry) NewSurface(opts Options) (Surface, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackendAvailable
	}

	// Try each available backend in priority order
	var lastErr error
	for _, name := range available {
		s, err := r.NewSurfaceByName(name, opts)
		if err == nil {
			return s, nil
		}
		logger().Debug("surface: backend failed, trying next", "backend", name, "err", err)
		lastErr = err
	}
	return nil, lastErr
}

// NewSurfaceByName creates a surface using a specific backend.
func (r *Registry) NewSurfaceByName(name string, opts Options) (Surface, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}

	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}

	return entry.Factory(opts)
}

// sortedNames returns backend names sorted by priority (highest first),
// ties broken by name. If onlyAvailable is true, filters to available
// backends only. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Errors.
var (
	// ErrNoBackendAvailable is returned when no surface backends are registered
	// or none report themselves available.
	ErrNoBackendAvailable = errors.New("surface: no backend available")
)

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "surface: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "surface: backend not available: " + e.Name
}

// InvalidSizeError is returned when a surface is requested with a
// non-positive dimension.
type InvalidSizeError struct {
	Width, Height int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("surface: invalid size %dx%d", e.Width, e.Height)
}
