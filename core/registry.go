package core

import (
	"reflect"
	"sort"
	"sync"
)

// TeamRegistry is the set of teams a customer context broadcast reaches.
type TeamRegistry interface {
	// Add registers t, replacing any team with the same name. Nil teams are ignored.
	Add(t Team)
	// Remove drops the named team and reports whether it was registered.
	Remove(name string) bool
	Team(name string) (Team, bool)
	// Teams returns the registered teams ordered by name.
	Teams() []Team
}

// IsNilTeam reports whether t is nil or a typed nil pointer.
func IsNilTeam(t Team) bool {
	if t == nil {
		return true
	}
	rv := reflect.ValueOf(t)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// Registry is an in-memory TeamRegistry safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	teams map[string]Team
}

var _ TeamRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{teams: make(map[string]Team)}
}

// Add implements TeamRegistry.
func (r *Registry) Add(t Team) {
	if IsNilTeam(t) {
		return
	}
	name := t.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[name] = t
}

// Remove implements TeamRegistry.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.teams[name]
	delete(r.teams, name)
	return ok
}

// Team implements TeamRegistry.
func (r *Registry) Team(name string) (Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[name]
	return t, ok
}

// Teams implements TeamRegistry.
func (r *Registry) Teams() []Team {
	r.mu.RLock()
	names := make([]string, 0, len(r.teams))
	for name := range r.teams {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Team, len(names))
	for i, name := range names {
		out[i] = r.teams[name]
	}
	r.mu.RUnlock()
	return out
}
