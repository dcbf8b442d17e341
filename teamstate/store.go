package teamstate

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// UpdateFunc computes a team's next state from a private copy of its current
// state. exists is false for a team without a record. Returning an error
// aborts the write and leaves the record untouched.
type UpdateFunc func(current map[string]any, exists bool) (map[string]any, error)

// Store holds TeamStateRecords. Update is an atomic read-modify-write that
// bumps SyncVersion by one and sets LastUpdated to at. Records handed out are
// deep copies.
type Store interface {
	Update(team string, at time.Time, fn UpdateFunc) (TeamStateRecord, error)
	Get(team string) (TeamStateRecord, bool, error)
	Snapshot() (map[string]TeamStateRecord, error)
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*ContainerStore)(nil)
)

type slot struct {
	mu     sync.Mutex
	record TeamStateRecord
	exists bool
}

// InMemoryStore locks each team independently; writers to different teams
// never contend. Snapshot visits teams one at a time and is therefore
// read-committed rather than a point-in-time view.
type InMemoryStore struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{slots: make(map[string]*slot)}
}

func (s *InMemoryStore) lookup(team string, create bool) *slot {
	s.mu.RLock()
	sl, ok := s.slots[team]
	s.mu.RUnlock()
	if ok || !create {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[team]; !ok {
		sl = &slot{}
		s.slots[team] = sl
	}
	return sl
}

// Update implements Store.
func (s *InMemoryStore) Update(team string, at time.Time, fn UpdateFunc) (TeamStateRecord, error) {
	sl := s.lookup(team, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, err := fn(cloneState(sl.record.State), sl.exists)
	if err != nil {
		return TeamStateRecord{}, err
	}

	sl.record = TeamStateRecord{
		TeamName:    team,
		State:       cloneState(next),
		LastUpdated: at,
		SyncVersion: sl.record.SyncVersion + 1,
	}
	sl.exists = true
	return sl.record.Clone(), nil
}

// Get implements Store.
func (s *InMemoryStore) Get(team string) (TeamStateRecord, bool, error) {
	sl := s.lookup(team, false)
	if sl == nil {
		return TeamStateRecord{}, false, nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.exists {
		return TeamStateRecord{}, false, nil
	}
	return sl.record.Clone(), true, nil
}

// Snapshot implements Store.
func (s *InMemoryStore) Snapshot() (map[string]TeamStateRecord, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.slots))
	slots := make([]*slot, 0, len(s.slots))
	for name, sl := range s.slots {
		names = append(names, name)
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	out := make(map[string]TeamStateRecord, len(slots))
	for i, sl := range slots {
		sl.mu.Lock()
		if sl.exists {
			out[names[i]] = sl.record.Clone()
		}
		sl.mu.Unlock()
	}
	return out, nil
}

// ContainerStore keeps the records inside the orchestrator's own state
// container under core.KeyTeamStates, guarded by one global lock. It is
// unavailable when the provider is nil.
type ContainerStore struct {
	mu       sync.Mutex
	provider core.StateProvider
}

// NewContainerStore wraps provider.
func NewContainerStore(provider core.StateProvider) *ContainerStore {
	return &ContainerStore{provider: provider}
}

func (s *ContainerStore) load() (map[string]TeamStateRecord, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: orchestrator state container is nil", ErrUnavailable)
	}
	raw, ok := s.provider.GetState(core.KeyTeamStates)
	if !ok || raw == nil {
		return map[string]TeamStateRecord{}, nil
	}
	records, ok := raw.(map[string]TeamStateRecord)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrUnexpected, core.KeyTeamStates, raw)
	}
	return records, nil
}

// Update implements Store.
func (s *ContainerStore) Update(team string, at time.Time, fn UpdateFunc) (TeamStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return TeamStateRecord{}, err
	}

	prev, exists := records[team]
	next, err := fn(cloneState(prev.State), exists)
	if err != nil {
		return TeamStateRecord{}, err
	}

	rec := TeamStateRecord{
		TeamName:    team,
		State:       cloneState(next),
		LastUpdated: at,
		SyncVersion: prev.SyncVersion + 1,
	}

	updated := make(map[string]TeamStateRecord, len(records)+1)
	for k, v := range records {
		updated[k] = v
	}
	updated[team] = rec
	if err := s.provider.SetState(core.KeyTeamStates, updated); err != nil {
		return TeamStateRecord{}, err
	}
	return rec.Clone(), nil
}

// Get implements Store.
func (s *ContainerStore) Get(team string) (TeamStateRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return TeamStateRecord{}, false, err
	}
	rec, ok := records[team]
	if !ok {
		return TeamStateRecord{}, false, nil
	}
	return rec.Clone(), true, nil
}

// Snapshot implements Store. The copy is a consistent point-in-time view.
func (s *ContainerStore) Snapshot() (map[string]TeamStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return map[string]TeamStateRecord{}, err
	}
	out := make(map[string]TeamStateRecord, len(records))
	for k, v := range records {
		out[k] = v.Clone()
	}
	return out, nil
}

// sortedNames returns the keys of records in ascending order.
func sortedNames(records map[string]TeamStateRecord) []string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
