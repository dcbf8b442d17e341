package testutil

import (
	"errors"
	"sync"
)

// ErrWriteRejected is returned by FailingTeam.SetState.
var ErrWriteRejected = errors.New("testutil: write rejected")

// FailingTeam is a team whose state container rejects every write.
type FailingTeam struct{ TeamName string }

// Name implements core.Team.
func (t FailingTeam) Name() string { return t.TeamName }

// GetState implements core.StateProvider.
func (FailingTeam) GetState(string) (any, bool) { return nil, false }

// SetState implements core.StateProvider.
func (FailingTeam) SetState(string, any) error { return ErrWriteRejected }

// PanickingTeam panics on every write.
type PanickingTeam struct{ TeamName string }

// Name implements core.Team.
func (t PanickingTeam) Name() string { return t.TeamName }

// GetState implements core.StateProvider.
func (PanickingTeam) GetState(string) (any, bool) { panic("testutil: broken state container") }

// SetState implements core.StateProvider.
func (PanickingTeam) SetState(string, any) error { panic("testutil: broken state container") }

// StatelessTeam is a team without a state container.
type StatelessTeam struct{ TeamName string }

// Name implements core.Team.
func (t StatelessTeam) Name() string { return t.TeamName }

// MapProvider is a minimal core.StateProvider without atomic updates.
type MapProvider struct {
	mu    sync.Mutex
	state map[string]any
}

// NewMapProvider creates an empty MapProvider.
func NewMapProvider() *MapProvider { return &MapProvider{state: map[string]any{}} }

// GetState implements core.StateProvider.
func (p *MapProvider) GetState(key string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.state[key]
	return v, ok
}

// SetState implements core.StateProvider.
func (p *MapProvider) SetState(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[key] = value
	return nil
}
