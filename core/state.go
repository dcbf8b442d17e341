package core

import (
	"fmt"
	"sync"
)

// Well-known state container keys shared between the orchestrator, the teams
// and the synchronizer.
const (
	// KeyTeamStates holds the per-team records when they are kept inside the
	// orchestrator's own container.
	KeyTeamStates = "team_states"
	// KeyRoutingDecisions holds the orchestrator's ordered routing log.
	KeyRoutingDecisions = "routing_decisions"
	// KeyCustomerContext is the reserved slot a broadcast writes into on
	// every team.
	KeyCustomerContext = "customer_context"
)

// Team is an independently addressable specialist unit. A team that keeps
// local state additionally implements StateProvider.
type Team interface {
	Name() string
}

// StateProvider exposes a collaborator's mutable state container. SetState
// returns an error when the container rejects the write.
type StateProvider interface {
	GetState(key string) (any, bool)
	SetState(key string, value any) error
}

// StateUpdater is an optional capability allowing an atomic read-modify-write
// of a single key. The synchronizer prefers it over GetState/SetState pairs.
type StateUpdater interface {
	UpdateState(key string, fn func(current any, exists bool) (any, error)) error
}

// StateContainer is a mutable key/value container safe for concurrent access.
//
// Snapshot returns a shallow copy of the key space and Clone produces an
// independent container.
type StateContainer struct {
	mu    sync.RWMutex
	state map[string]any
}

// NewStateContainer creates an empty container.
func NewStateContainer() *StateContainer {
	return &StateContainer{state: map[string]any{}}
}

// GetState returns the value and existence flag for a state key.
func (c *StateContainer) GetState(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.state[key]
	return v, ok
}

// SetState sets a key/value pair.
func (c *StateContainer) SetState(key string, value any) error {
	if key == "" {
		return fmt.Errorf("state key must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[key] = value
	return nil
}

// UpdateState applies fn to the current value of key under the write lock.
// If fn returns an error the container is left untouched.
func (c *StateContainer) UpdateState(key string, fn func(current any, exists bool) (any, error)) error {
	if key == "" {
		return fmt.Errorf("state key must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.state[key]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	c.state[key] = next
	return nil
}

// ApplyStateDelta merges the provided key/value pairs into the container.
func (c *StateContainer) ApplyStateDelta(delta map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range delta {
		c.state[k] = v
	}
}

// Snapshot returns a shallow copy of the container contents.
func (c *StateContainer) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of the container (values are shared).
func (c *StateContainer) Clone() *StateContainer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clone := &StateContainer{state: make(map[string]any, len(c.state))}
	for k, v := range c.state {
		clone.state[k] = v
	}
	return clone
}
