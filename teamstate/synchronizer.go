package teamstate

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
)

// Operation names used in OpError and log records.
const (
	OpSyncTeamState            = "sync_team_state"
	OpGetCrossTeamContext      = "get_cross_team_context"
	OpPropagateCustomerContext = "propagate_customer_context"
	OpGetTeamInsights          = "get_team_insights"
	OpCheckEscalationStatus    = "check_escalation_status"
	OpGetCustomerJourney       = "get_customer_journey"
	OpResetTeamState           = "reset_team_state"
	OpRecordRoutingDecision    = "record_routing_decision"
	OpFlagEscalation           = "flag_escalation"
	OpClearEscalationFlag      = "clear_escalation_flag"
	OpRecordInteraction        = "record_interaction"
	OpRegisterTeam             = "register_team"
)

// SourceOrchestrator marks context written by a broadcast.
const SourceOrchestrator = "orchestrator"

// DefaultBroadcastConcurrency bounds the number of concurrent team writes
// during PropagateCustomerContext.
const DefaultBroadcastConcurrency = 8

// Options configures a Synchronizer.
type Options struct {
	// Store holds the team records. A nil store makes every record operation
	// fail with ErrUnavailable.
	Store Store
	// Orchestrator holds the routing decision log. Optional.
	Orchestrator core.StateProvider
	// Registry is the team set broadcasts reach. Defaults to Orchestrator
	// when it implements core.TeamRegistry, else to a private registry.
	Registry core.TeamRegistry
	Logger   logging.Logger
	Clock    func() time.Time
	// BroadcastConcurrency limits concurrent team writes; <= 0 means unbounded.
	BroadcastConcurrency int
}

// syncRecorder is implemented by loggers with dedicated sync and broadcast
// records, such as *logging.SupportLogger.
type syncRecorder interface {
	LogSync(team string, version int64, dur time.Duration, err error)
	LogBroadcast(updated, total int, dur time.Duration)
}

var _ syncRecorder = (*logging.SupportLogger)(nil)

// Synchronizer is the coordination API over a Store and the registered
// team collaborators. It is safe for concurrent use.
type Synchronizer struct {
	store        Store
	orchestrator core.StateProvider
	logger       logging.Logger
	clock        func() time.Time
	concurrency  int

	registry core.TeamRegistry

	routingMu sync.Mutex

	sessionsMu sync.RWMutex
	sessions   map[string]HandoffContext
}

// NewSynchronizer creates a Synchronizer backed by an InMemoryStore unless
// optFns supply another store.
func NewSynchronizer(optFns ...func(o *Options)) *Synchronizer {
	opts := Options{
		Store:                NewInMemoryStore(),
		Logger:               logging.NoOpLogger{},
		Clock:                time.Now,
		BroadcastConcurrency: DefaultBroadcastConcurrency,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Registry == nil {
		if r, ok := opts.Orchestrator.(core.TeamRegistry); ok {
			opts.Registry = r
		} else {
			opts.Registry = core.NewRegistry()
		}
	}

	return &Synchronizer{
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		logger:       logging.OrNoOp(opts.Logger),
		clock:        opts.Clock,
		concurrency:  opts.BroadcastConcurrency,
		registry:     opts.Registry,
		sessions:     make(map[string]HandoffContext),
	}
}

// guard runs fn, recovers panics and turns failures into logged *OpErrors.
func (s *Synchronizer) guard(op, team string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrUnexpected, r)
		}
		if err == nil {
			return
		}
		err = &OpError{Op: op, Team: team, Err: classify(err)}
		if errors.Is(err, ErrUnexpected) {
			s.logger.Error("team state operation failed", "op", op, "team", team, "error", err)
		} else {
			s.logger.Warn("team state operation degraded", "op", op, "team", team, "error", err)
		}
	}()
	return fn()
}

func (s *Synchronizer) now() time.Time { return s.clock().UTC() }

// update is the single write path for team records.
func (s *Synchronizer) update(op, team string, fn UpdateFunc) (TeamStateRecord, error) {
	var rec TeamStateRecord
	start := time.Now()
	err := s.guard(op, team, func() error {
		if s.store == nil {
			return fmt.Errorf("%w: no team state store configured", ErrUnavailable)
		}
		if strings.TrimSpace(team) == "" {
			return fmt.Errorf("%w: team name must not be empty", ErrInvalidArgument)
		}
		r, err := s.store.Update(team, s.now(), fn)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return TeamStateRecord{}, err
	}
	if r, ok := s.logger.(syncRecorder); ok {
		r.LogSync(team, rec.SyncVersion, time.Since(start), nil)
	} else {
		s.logger.Debug("team state synced", "op", op, "team", team, "sync_version", rec.SyncVersion)
	}
	return rec, nil
}

func (s *Synchronizer) snapshot(op string) (map[string]TeamStateRecord, error) {
	var snap map[string]TeamStateRecord
	err := s.guard(op, "", func() error {
		if s.store == nil {
			return fmt.Errorf("%w: no team state store configured", ErrUnavailable)
		}
		var err error
		snap, err = s.store.Snapshot()
		return err
	})
	if err != nil || snap == nil {
		return map[string]TeamStateRecord{}, err
	}
	return snap, nil
}

// RegisterTeam adds t to the broadcast registry, replacing any team with the
// same name.
func (s *Synchronizer) RegisterTeam(t core.Team) error {
	return s.guard(OpRegisterTeam, "", func() error {
		if core.IsNilTeam(t) || strings.TrimSpace(t.Name()) == "" {
			return fmt.Errorf("%w: team must have a name", ErrInvalidArgument)
		}
		s.registry.Add(t)
		return nil
	})
}

// UnregisterTeam removes a team from the registry. Its record stays in the store.
func (s *Synchronizer) UnregisterTeam(name string) bool {
	return s.registry.Remove(name)
}

// Team returns a registered team by name.
func (s *Synchronizer) Team(name string) (core.Team, bool) {
	return s.registry.Team(name)
}

// Teams returns the registered team names in ascending order.
func (s *Synchronizer) Teams() []string {
	teams := s.registry.Teams()
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name()
	}
	return names
}

// SyncTeamState replaces the team's state with a copy of state, bumping its
// sync version. The first write for a team yields version 1.
func (s *Synchronizer) SyncTeamState(team string, state map[string]any) (TeamStateRecord, error) {
	return s.update(OpSyncTeamState, team, func(map[string]any, bool) (map[string]any, error) {
		return cloneState(state), nil
	})
}

// ResetTeamState overwrites the team's state with DefaultState, bumping its
// sync version.
func (s *Synchronizer) ResetTeamState(team string) (TeamStateRecord, error) {
	return s.update(OpResetTeamState, team, func(map[string]any, bool) (map[string]any, error) {
		return DefaultState(), nil
	})
}

// GetCrossTeamContext returns a deep copy of every team record. On failure
// it returns an empty map.
func (s *Synchronizer) GetCrossTeamContext() (map[string]TeamStateRecord, error) {
	return s.snapshot(OpGetCrossTeamContext)
}

// PropagateCustomerContext writes {context, timestamp, source} into the
// core.KeyCustomerContext slot of every registered team. Teams are written
// independently and concurrently; the returned count is the number of teams
// that accepted the write. The error joins every per-team failure and is
// informational: partial success is a normal outcome.
func (s *Synchronizer) PropagateCustomerContext(customerContext map[string]any) (int, error) {
	start := time.Now()
	teams := s.registry.Teams()
	payload := map[string]any{
		"context":   cloneState(customerContext),
		"timestamp": FormatTimestamp(s.now()),
		"source":    SourceOrchestrator,
	}

	var (
		g       errgroup.Group
		updated atomic.Int64
		errs    = make([]error, len(teams))
	)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for i, t := range teams {
		i, t := i, t
		g.Go(func() error {
			errs[i] = s.guard(OpPropagateCustomerContext, t.Name(), func() error {
				provider, ok := t.(core.StateProvider)
				if !ok {
					return ErrUnsupported
				}
				return provider.SetState(core.KeyCustomerContext, cloneState(payload))
			})
			if errs[i] == nil {
				updated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(updated.Load())
	if r, ok := s.logger.(syncRecorder); ok {
		r.LogBroadcast(n, len(teams), time.Since(start))
	} else {
		s.logger.Info("customer context propagated", "teams_updated", n, "teams_total", len(teams))
	}
	return n, errors.Join(errs...)
}

// TeamInsights is the projection of a team record exposed to other teams.
type TeamInsights struct {
	ResearchFindings []any          `json:"research_findings"`
	CustomerAnalysis map[string]any `json:"customer_analysis"`
	EscalationFlags  map[string]any `json:"escalation_flags"`
	TeamDecisions    []any          `json:"team_decisions"`
	LastUpdated      time.Time      `json:"last_updated"`
}

// GetTeamInsights projects the team's record. It returns nil when the team
// has no record or the read fails.
func (s *Synchronizer) GetTeamInsights(team string) (*TeamInsights, error) {
	var (
		rec    TeamStateRecord
		exists bool
	)
	err := s.guard(OpGetTeamInsights, team, func() error {
		if s.store == nil {
			return fmt.Errorf("%w: no team state store configured", ErrUnavailable)
		}
		var err error
		rec, exists, err = s.store.Get(team)
		return err
	})
	if err != nil || !exists {
		return nil, err
	}

	return &TeamInsights{
		ResearchFindings: asSlice(rec.State[KeyResearchFindings]),
		CustomerAnalysis: asMap(rec.State[KeyCustomerAnalysis]),
		EscalationFlags:  asMap(rec.State[KeyEscalationFlags]),
		TeamDecisions:    asSlice(rec.State[KeyTeamDecisions]),
		LastUpdated:      rec.LastUpdated,
	}, nil
}

// FlagEscalation records an escalation flag of flagType on the team's state.
// Flags with severity "high" surface as critical in CheckEscalationStatus.
func (s *Synchronizer) FlagEscalation(team, flagType, severity string, details any) (TeamStateRecord, error) {
	if strings.TrimSpace(flagType) == "" {
		return TeamStateRecord{}, s.guard(OpFlagEscalation, team, func() error {
			return fmt.Errorf("%w: flag type must not be empty", ErrInvalidArgument)
		})
	}
	ts := FormatTimestamp(s.now())
	return s.update(OpFlagEscalation, team, func(current map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			current = DefaultState()
		}
		flags := asMap(current[KeyEscalationFlags])
		if flags == nil {
			flags = map[string]any{}
		}
		flags[flagType] = map[string]any{
			"severity":  severity,
			"details":   deepCopy(details),
			"timestamp": ts,
		}
		current[KeyEscalationFlags] = flags
		return current, nil
	})
}

// ClearEscalationFlag removes flagType from the team's escalation flags.
func (s *Synchronizer) ClearEscalationFlag(team, flagType string) (TeamStateRecord, error) {
	return s.update(OpClearEscalationFlag, team, func(current map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			current = DefaultState()
		}
		if flags := asMap(current[KeyEscalationFlags]); flags != nil {
			delete(flags, flagType)
			current[KeyEscalationFlags] = flags
		}
		return current, nil
	})
}

// RecordInteraction appends entry to the team's interaction flow, stamping
// it with the current time when it carries no timestamp.
func (s *Synchronizer) RecordInteraction(team string, entry map[string]any) (TeamStateRecord, error) {
	e := cloneState(entry)
	if timestampOf(e) == "" {
		e["timestamp"] = FormatTimestamp(s.now())
	}
	return s.update(OpRecordInteraction, team, func(current map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			current = DefaultState()
		}
		current[KeyInteractionFlow] = append(asSlice(current[KeyInteractionFlow]), e)
		return current, nil
	})
}

// RecordRoutingDecision appends decision to the orchestrator's routing log,
// stamping it with the current time when it carries no timestamp. The append
// is atomic when the orchestrator implements core.StateUpdater.
func (s *Synchronizer) RecordRoutingDecision(decision map[string]any) error {
	d := cloneState(decision)
	if timestampOf(d) == "" {
		d["timestamp"] = FormatTimestamp(s.now())
	}
	appendTo := func(current any, _ bool) (any, error) {
		return append(routingEntries(current), d), nil
	}

	return s.guard(OpRecordRoutingDecision, "", func() error {
		if s.orchestrator == nil {
			return fmt.Errorf("%w: no orchestrator state container", ErrUnavailable)
		}
		if u, ok := s.orchestrator.(core.StateUpdater); ok {
			return u.UpdateState(core.KeyRoutingDecisions, appendTo)
		}

		s.routingMu.Lock()
		defer s.routingMu.Unlock()
		current, exists := s.orchestrator.GetState(core.KeyRoutingDecisions)
		next, err := appendTo(current, exists)
		if err != nil {
			return err
		}
		return s.orchestrator.SetState(core.KeyRoutingDecisions, next)
	})
}

// routingEntries returns a fresh []any holding the map entries of v.
func routingEntries(v any) []any {
	items := asSlice(v)
	out := make([]any, 0, len(items)+1)
	for _, item := range items {
		if m := asMap(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}
