package team

import (
	"github.com/hupe1980/supportmesh/core"
)

var (
	_ core.Team          = (*InMemoryTeam)(nil)
	_ core.StateProvider = (*InMemoryTeam)(nil)
	_ core.StateUpdater  = (*InMemoryTeam)(nil)
	_ core.StateProvider = (*Orchestrator)(nil)
	_ core.StateUpdater  = (*Orchestrator)(nil)
)

// InMemoryTeam is a specialist team whose local state lives in process
// memory. It is safe for concurrent access.
type InMemoryTeam struct {
	*core.StateContainer
	name string
}

// NewInMemoryTeam creates a team with an empty state container.
func NewInMemoryTeam(name string) *InMemoryTeam {
	return &InMemoryTeam{StateContainer: core.NewStateContainer(), name: name}
}

// Name implements core.Team.
func (t *InMemoryTeam) Name() string { return t.name }

// Orchestrator is the top-level coordinator: it owns the shared routing
// state container and the canonical team registry.
type Orchestrator struct {
	*core.StateContainer
	*core.Registry
}

var _ core.TeamRegistry = (*Orchestrator)(nil)

// NewOrchestrator creates an orchestrator registering teams.
func NewOrchestrator(teams ...core.Team) *Orchestrator {
	o := &Orchestrator{StateContainer: core.NewStateContainer(), Registry: core.NewRegistry()}
	for _, t := range teams {
		o.Add(t)
	}
	return o
}
