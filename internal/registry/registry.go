// Package registry holds the application's name→table directory. It is an
// explicitly passed object with caller-controlled lifetime rather than
// process-wide mutable state.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zoreu/tabledb/internal/table"
)

// Registry manages created tables in a thread-safe way
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		tables: make(map[string]*table.Table),
	}
}

// CreateTable creates a table and registers it under its name.
// Fails when a table with the same name already exists.
func (r *Registry) CreateTable(name string, fields []string, indexedField string, cacheCapacity int) (*table.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; ok {
		return nil, fmt.Errorf("table '%s' already exists", name)
	}
	t, err := table.New(name, fields, indexedField, cacheCapacity)
	if err != nil {
		return nil, err
	}
	t.AddObserver(table.NewLoggingObserver())
	r.tables[name] = t
	return t, nil
}

// Get returns the table registered under name
func (r *Registry) Get(name string) (*table.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Drop removes a table from the registry. Its contents are gone with it;
// there is no persistence to reclaim.
func (r *Registry) Drop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; !ok {
		return fmt.Errorf("table '%s' does not exist", name)
	}
	delete(r.tables, name)
	return nil
}

// List returns the registered table names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
