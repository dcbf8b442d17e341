// Package supportmesh provides a high-level façade over handoff detection,
// escalation protocol construction and cross-team state synchronization for
// multi-team customer support orchestrators. Most applications interact with
// this package by:
//  1. Creating a SupportMesh via New() (optionally overriding the default
//     configuration, store, gateway or analyzer)
//  2. Registering the specialist teams
//  3. Passing every customer utterance to HandleMessage
//
// Teams keep the orchestrator's view of their state current through the
// Synchronizer or the TeamStateTool.
package supportmesh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/supportmesh/config"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/escalation"
	"github.com/hupe1980/supportmesh/handoff"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/model"
	"github.com/hupe1980/supportmesh/model/anthropic"
	"github.com/hupe1980/supportmesh/model/openai"
	"github.com/hupe1980/supportmesh/notify"
	"github.com/hupe1980/supportmesh/team"
	"github.com/hupe1980/supportmesh/teamstate"
	"github.com/hupe1980/supportmesh/tool"
)

// Options configures the SupportMesh instance.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Logger defaults to a SupportLogger built from Config.Logging.
	Logger logging.Logger

	// Model backs the escalation analyzer. When nil, Config.Model.Provider
	// selects a provider adapter; "none" uses the rule analyzer only.
	Model model.Model

	// Analyzer overrides the analyzer selection entirely.
	Analyzer escalation.Analyzer

	// Gateway receives escalation notifications (defaults to a LogGateway).
	Gateway notify.Gateway

	// Store overrides the store selected by Config.Escalation.Store.
	Store teamstate.Store

	// Orchestrator holds the routing decision log and the team registry
	// shared with the synchronizer.
	Orchestrator *team.Orchestrator

	Clock  func() time.Time
	Getenv func(string) string
}

// Outcome reports what HandleMessage did with one utterance.
type Outcome struct {
	SessionID string
	Detection handoff.Result
	Analysis  escalation.Analysis
	// Protocol is nil when the message did not call for escalation.
	Protocol *escalation.Protocol
	Handoff  teamstate.HandoffContext
	// SyncErr joins failures of the best-effort state writes.
	SyncErr error
	// DeliveryErr is the gateway error, if any.
	DeliveryErr error
}

// Escalated reports whether a protocol was created.
func (o *Outcome) Escalated() bool { return o.Protocol != nil }

// SupportMesh is the façade aggregating detector, analyzer, builder,
// synchronizer and gateway.
type SupportMesh struct {
	cfg          atomic.Pointer[config.Config]
	detector     *swappableDetector
	analyzer     escalation.Analyzer
	builder      *escalation.Builder
	sync         *teamstate.Synchronizer
	orchestrator *team.Orchestrator
	gateway      notify.Gateway
	logger       logging.Logger
}

// New creates a new SupportMesh. Configuration errors surface here; every
// other default is an in-memory implementation safe for local use.
func New(optFns ...func(o *Options)) (*SupportMesh, error) {
	opts := Options{
		Clock:  time.Now,
		Getenv: os.Getenv,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(cfg.LoggerConfig())
	}

	orchestrator := opts.Orchestrator
	if orchestrator == nil {
		orchestrator = team.NewOrchestrator()
	}

	store := opts.Store
	if store == nil {
		switch cfg.Escalation.Store {
		case config.StoreContainer:
			store = teamstate.NewContainerStore(orchestrator)
		default:
			store = teamstate.NewInMemoryStore()
		}
	}

	m := &SupportMesh{
		detector:     newSwappableDetector(handoff.NewDetector(cfg.DetectorOptions())),
		orchestrator: orchestrator,
		logger:       logger,
	}
	m.cfg.Store(cfg)

	m.sync = teamstate.NewSynchronizer(func(o *teamstate.Options) {
		o.Store = store
		o.Orchestrator = orchestrator
		o.Logger = logger
		o.Clock = opts.Clock
		o.BroadcastConcurrency = cfg.Escalation.BroadcastConcurrency
	})

	var ids escalation.IDGenerator = escalation.UUIDGenerator{}
	if cfg.Escalation.IDStrategy == config.IDStrategySequential {
		ids = escalation.ProcessSequentialGenerator()
	}
	m.builder = escalation.NewBuilder(func(o *escalation.Options) {
		o.IDGenerator = ids
		o.Clock = opts.Clock
		o.DefaultTeam = cfg.Escalation.DefaultTeam
	})

	m.analyzer = opts.Analyzer
	if m.analyzer == nil {
		mdl := opts.Model
		if mdl == nil {
			mdl = newProviderModel(cfg.Model, opts.Getenv)
		}
		if mdl != nil {
			m.analyzer = escalation.NewModelAnalyzer(mdl, func(o *escalation.ModelOptions) {
				o.Detector = m.detector
				o.Logger = logger
			})
		} else {
			m.analyzer = escalation.NewRuleAnalyzer(m.detector)
		}
	}

	m.gateway = opts.Gateway
	if m.gateway == nil {
		m.gateway = notify.NewLogGateway(logger)
	}

	return m, nil
}

func newProviderModel(mc config.ModelConfig, getenv func(string) string) model.Model {
	switch mc.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = mc.APIKey(getenv)
			o.Temperature = mc.Temperature
			if mc.Name != "" {
				o.Model = anthropicsdk.Model(mc.Name)
			}
		})
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = mc.APIKey(getenv)
			o.Temperature = mc.Temperature
			if mc.Name != "" {
				o.Model = mc.Name
			}
		})
	default:
		return nil
	}
}

// Synchronizer returns the state synchronizer shared by every team.
func (m *SupportMesh) Synchronizer() *teamstate.Synchronizer { return m.sync }

// Orchestrator returns the orchestrator collaborator.
func (m *SupportMesh) Orchestrator() *team.Orchestrator { return m.orchestrator }

// Config returns the active configuration.
func (m *SupportMesh) Config() *config.Config { return m.cfg.Load() }

// RegisterTeam adds t to the orchestrator's team registry, which every
// broadcast enumerates.
func (m *SupportMesh) RegisterTeam(t core.Team) error {
	return m.sync.RegisterTeam(t)
}

// TeamStateTool returns a team state tool bound to teamName.
func (m *SupportMesh) TeamStateTool(teamName string) *tool.TeamStateTool {
	return tool.NewTeamStateTool(m.sync, teamName)
}

// ApplyConfig swaps in cfg for subsequent messages. The detector lexicon,
// team routing, default team and notification target take effect
// immediately. The logger, store, analyzer and id strategy keep their
// construction-time settings.
func (m *SupportMesh) ApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("supportmesh: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.detector.Store(handoff.NewDetector(cfg.DetectorOptions()))
	m.cfg.Store(cfg)
	m.logger.Info("configuration applied", "teams", len(cfg.Teams))
	return nil
}

// WatchConfig reloads path on change and applies every valid revision.
// Invalid revisions are logged and ignored.
func (m *SupportMesh) WatchConfig(path string, optFns ...func(o *config.WatchOptions)) (*config.Watcher, error) {
	return config.Watch(path, func(cfg *config.Config, err error) {
		if err == nil {
			err = m.ApplyConfig(cfg)
		}
		if err != nil {
			m.logger.Warn("configuration reload rejected", "path", path, "error", err)
		}
	}, optFns...)
}

// Detect runs the active handoff detector.
func (m *SupportMesh) Detect(message string) handoff.Result {
	return m.detector.Detect(message)
}

// HandleMessage classifies one customer utterance and, when it calls for a
// human, builds the escalation protocol, records it in the shared state and
// notifies the gateway.
//
// Validation failures are returned. State write and delivery failures are
// logged and reported in the Outcome. An empty sessionID is replaced by a
// fresh id, reported in Outcome.SessionID.
func (m *SupportMesh) HandleMessage(ctx context.Context, sessionID, message string, customer escalation.CustomerInfo, issue escalation.IssueDetails) (*Outcome, error) {
	if sessionID == "" {
		sessionID = core.NewID()
	}
	cfg := m.cfg.Load()
	out := &Outcome{SessionID: sessionID, Detection: m.detector.Detect(message)}

	analysis, err := m.analyzer.Analyze(ctx, message)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		m.logger.Warn("analyzer failed, falling back to rules", "session_id", sessionID, "error", err)
		analysis = escalation.AnalysisFromDetection(out.Detection)
	}
	out.Analysis = analysis

	if !analysis.ShouldEscalate {
		return out, nil
	}

	assigned, ok := cfg.TeamFor(issue.BusinessUnit)
	if !ok && issue.BusinessUnit == "" {
		assigned, ok = cfg.TeamFor(customer.BusinessUnit)
	}
	if !ok {
		assigned = cfg.Escalation.DefaultTeam
	}

	p, err := m.builder.Build(analysis, customer, issue, assigned)
	if err != nil {
		return nil, fmt.Errorf("build escalation protocol: %w", err)
	}
	out.Protocol = p
	out.Handoff = m.sync.BeginEscalation(sessionID, p.ID, p.AssignedTeam)

	var syncErrs []error
	if err := m.sync.RecordRoutingDecision(map[string]any{
		"team":        p.AssignedTeam,
		"session_id":  sessionID,
		"protocol_id": p.ID,
		"reason":      string(analysis.Reason),
		"urgency":     string(analysis.Urgency),
		"timestamp":   teamstate.FormatTimestamp(p.Timestamp),
	}); err != nil {
		syncErrs = append(syncErrs, err)
	}
	if _, err := m.sync.FlagEscalation(p.AssignedTeam, string(analysis.Reason), severityFor(analysis.Urgency), map[string]any{
		"protocol_id": p.ID,
		"session_id":  sessionID,
		"urgency":     string(analysis.Urgency),
		"confidence":  analysis.Confidence,
	}); err != nil {
		syncErrs = append(syncErrs, err)
	}
	out.SyncErr = errors.Join(syncErrs...)

	if r, ok := m.logger.(escalationRecorder); ok {
		r.LogEscalation(p.ID, p.AssignedTeam, string(analysis.Reason), string(analysis.Urgency))
	} else {
		m.logger.Info("escalation protocol created", "protocol_id", p.ID, "assigned_team", p.AssignedTeam)
	}

	if err := m.gateway.Send(ctx, notify.NewNotification(p, cfg.Escalation.NotificationTarget)); err != nil {
		m.logger.Error("escalation notification failed", "protocol_id", p.ID, "error", err)
		out.DeliveryErr = err
	}

	return out, nil
}

// CompleteEscalation marks the session's escalation as resolved.
func (m *SupportMesh) CompleteEscalation(sessionID string) (teamstate.HandoffContext, bool) {
	return m.sync.CompleteEscalation(sessionID)
}

type escalationRecorder interface {
	LogEscalation(protocolID, team, reason, urgency string)
}

var _ escalationRecorder = (*logging.SupportLogger)(nil)

func severityFor(u escalation.Urgency) string {
	switch u {
	case escalation.UrgencyHigh, escalation.UrgencyCritical:
		return teamstate.SeverityHigh
	case escalation.UrgencyLow:
		return "low"
	default:
		return "medium"
	}
}

// swappableDetector lets ApplyConfig replace the lexicon while analyzers
// hold a stable reference.
type swappableDetector struct {
	p atomic.Pointer[handoff.Detector]
}

var _ escalation.Detector = (*swappableDetector)(nil)

func newSwappableDetector(d *handoff.Detector) *swappableDetector {
	s := &swappableDetector{}
	s.p.Store(d)
	return s
}

func (s *swappableDetector) Store(d *handoff.Detector) { s.p.Store(d) }

func (s *swappableDetector) Detect(message string) handoff.Result {
	return s.p.Load().Detect(message)
}
