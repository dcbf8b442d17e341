package supportmesh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/config"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/escalation"
	"github.com/hupe1980/supportmesh/handoff"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/model"
	"github.com/hupe1980/supportmesh/notify"
	"github.com/hupe1980/supportmesh/team"
	"github.com/hupe1980/supportmesh/teamstate"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMesh(t *testing.T, optFns ...func(o *Options)) (*SupportMesh, *notify.MemoryGateway) {
	t.Helper()
	gw := notify.NewMemoryGateway()
	fns := append([]func(o *Options){func(o *Options) {
		o.Gateway = gw
		o.Logger = logging.NoOpLogger{}
		o.Clock = func() time.Time { return fixedNow }
	}}, optFns...)
	m, err := New(fns...)
	require.NoError(t, err)
	return m, gw
}

func routedConfig() *config.Config {
	cfg := config.Default()
	cfg.Teams = []config.TeamConfig{
		{Name: "emissao_team", BusinessUnits: []escalation.BusinessUnit{escalation.BusinessUnitEmissao}},
		{Name: "pagbank_team", BusinessUnits: []escalation.BusinessUnit{escalation.BusinessUnitPagBank}},
	}
	return cfg
}

func TestHandleMessage_NoEscalation(t *testing.T) {
	m, gw := newMesh(t)

	out, err := m.HandleMessage(context.Background(), "s1", "qual o meu saldo?", escalation.CustomerInfo{}, escalation.IssueDetails{})
	require.NoError(t, err)
	assert.False(t, out.Escalated())
	assert.False(t, out.Detection.NeedsHandoff)
	assert.Empty(t, gw.Notifications())

	status, err := m.Synchronizer().CheckEscalationStatus()
	require.NoError(t, err)
	assert.False(t, status.HasEscalations)
}

func TestHandleMessage_ExplicitRequestRoutedByBusinessUnit(t *testing.T) {
	m, gw := newMesh(t, func(o *Options) { o.Config = routedConfig() })
	ctx := context.Background()

	out, err := m.HandleMessage(ctx, "s1", "Quero falar com um humano agora", escalation.CustomerInfo{CustomerID: "c-1"},
		escalation.IssueDetails{Summary: "card blocked", BusinessUnit: escalation.BusinessUnitEmissao})
	require.NoError(t, err)
	require.True(t, out.Escalated())
	require.NoError(t, out.SyncErr)
	require.NoError(t, out.DeliveryErr)

	p := out.Protocol
	assert.Equal(t, "emissao_team", p.AssignedTeam)
	assert.Equal(t, escalation.ReasonExplicitRequest, p.Analysis.Reason)
	assert.Equal(t, escalation.StatusPending, p.Status)
	assert.Equal(t, fixedNow, p.Timestamp)
	assert.NotEmpty(t, p.ID)

	assert.True(t, out.Handoff.EscalationInProgress)
	assert.Equal(t, 1, out.Handoff.TotalEscalations)
	assert.Equal(t, p.ID, out.Handoff.CurrentProtocolID)

	notes := gw.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "human_support", notes[0].Target)
	assert.Equal(t, p.ID, notes[0].ProtocolID)
	assert.Equal(t, notify.PriorityNormal, notes[0].Priority)

	journey, err := m.Synchronizer().GetCustomerJourney()
	require.NoError(t, err)
	require.Len(t, journey, 1)
	assert.Equal(t, teamstate.EventRouting, journey[0].Type)
	assert.Equal(t, "emissao_team", journey[0].Team)
	assert.Equal(t, p.ID, journey[0].Data["protocol_id"])

	status, err := m.Synchronizer().CheckEscalationStatus()
	require.NoError(t, err)
	assert.Equal(t, []string{"emissao_team"}, status.TeamsWithEscalations)
	assert.Empty(t, status.CriticalFlags)

	hc, ok := m.CompleteEscalation("s1")
	assert.True(t, ok)
	assert.False(t, hc.EscalationInProgress)
	assert.Equal(t, 1, hc.TotalEscalations)
}

func TestHandleMessage_FrustrationIsCritical(t *testing.T) {
	m, gw := newMesh(t, func(o *Options) { o.Config = routedConfig() })

	out, err := m.HandleMessage(context.Background(), "s2", "que porcaria de app", escalation.CustomerInfo{BusinessUnit: escalation.BusinessUnitPagBank}, escalation.IssueDetails{})
	require.NoError(t, err)
	require.True(t, out.Escalated())
	assert.Equal(t, "pagbank_team", out.Protocol.AssignedTeam)
	assert.Equal(t, escalation.UrgencyHigh, out.Protocol.Analysis.Urgency)
	assert.Equal(t, notify.PriorityHigh, gw.Notifications()[0].Priority)

	status, err := m.Synchronizer().CheckEscalationStatus()
	require.NoError(t, err)
	require.Len(t, status.CriticalFlags, 1)
	assert.Equal(t, "pagbank_team", status.CriticalFlags[0].Team)
	assert.Equal(t, string(escalation.ReasonFrustrationDetected), status.CriticalFlags[0].Type)
}

func TestHandleMessage_UnroutedUsesDefaultTeam(t *testing.T) {
	m, _ := newMesh(t)

	out, err := m.HandleMessage(context.Background(), "", "talk to a human", escalation.CustomerInfo{}, escalation.IssueDetails{BusinessUnit: escalation.BusinessUnitGeneral})
	require.NoError(t, err)
	assert.Equal(t, "human_support", out.Protocol.AssignedTeam)
	require.NotEmpty(t, out.SessionID)
	assert.Equal(t, out.Protocol.ID, m.Synchronizer().HandoffContext(out.SessionID).CurrentProtocolID)
}

func TestHandleMessage_ValidationErrorIsReturned(t *testing.T) {
	m, gw := newMesh(t)

	_, err := m.HandleMessage(context.Background(), "s4", "talk to a human", escalation.CustomerInfo{BusinessUnit: "bogus"}, escalation.IssueDetails{})
	require.Error(t, err)
	assert.ErrorIs(t, err, escalation.ErrInvalid)

	var vErr *escalation.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "customer.business_unit", vErr.Field)
	assert.Empty(t, gw.Notifications())
	assert.False(t, m.Synchronizer().HandoffContext("s4").EscalationInProgress)
}

func TestHandleMessage_DeliveryFailureIsReported(t *testing.T) {
	m, gw := newMesh(t)
	boom := errors.New("smtp down")
	gw.SetError(boom)

	out, err := m.HandleMessage(context.Background(), "s5", "speak to a human", escalation.CustomerInfo{}, escalation.IssueDetails{})
	require.NoError(t, err)
	require.True(t, out.Escalated())
	assert.ErrorIs(t, out.DeliveryErr, boom)

	status, err := m.Synchronizer().CheckEscalationStatus()
	require.NoError(t, err)
	assert.True(t, status.HasEscalations)
}

func TestHandleMessage_ModelAnalyzer(t *testing.T) {
	mock := model.NewMockModel("mock", "test")
	mock.AddResponse("meu pix sumiu", "```json\n"+`{"should_escalate": true, "reason": "security_concern", "confidence": 0.9, "urgency": "critical", "emotion": "urgent", "reasoning": "missing funds"}`+"\n```")

	m, gw := newMesh(t, func(o *Options) { o.Model = mock })
	ctx := context.Background()

	out, err := m.HandleMessage(ctx, "s6", "meu pix sumiu", escalation.CustomerInfo{}, escalation.IssueDetails{})
	require.NoError(t, err)
	require.True(t, out.Escalated())
	assert.False(t, out.Detection.NeedsHandoff)
	assert.Equal(t, escalation.ReasonSecurityConcern, out.Protocol.Analysis.Reason)
	assert.Equal(t, notify.PriorityUrgent, gw.Notifications()[0].Priority)
	assert.Equal(t, 1, mock.Calls())

	// rule matches never reach the model
	_, err = m.HandleMessage(ctx, "s7", "quero falar com atendente", escalation.CustomerInfo{}, escalation.IssueDetails{})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
}

func TestHandleMessage_ModelFailureFallsBackToRules(t *testing.T) {
	mock := model.NewMockModel("mock", "test")
	mock.FailWith(errors.New("rate limited"))

	m, _ := newMesh(t, func(o *Options) { o.Model = mock })

	out, err := m.HandleMessage(context.Background(), "s8", "obrigado pela ajuda", escalation.CustomerInfo{}, escalation.IssueDetails{})
	require.NoError(t, err)
	assert.False(t, out.Escalated())
	assert.Equal(t, escalation.UrgencyLow, out.Analysis.Urgency)
}

func TestApplyConfig_SwapsDetectorAndRouting(t *testing.T) {
	m, _ := newMesh(t)
	ctx := context.Background()

	assert.False(t, m.Detect("chame o gerente").NeedsHandoff)

	cfg := routedConfig()
	cfg.Detector.HumanRequestPhrases = []string{"chame o gerente"}
	require.NoError(t, m.ApplyConfig(cfg))
	assert.Same(t, cfg, m.Config())

	res := m.Detect("CHAME O GERENTE por favor")
	assert.Equal(t, handoff.ReasonExplicitRequest, res.Reason)

	out, err := m.HandleMessage(ctx, "s9", "chame o gerente", escalation.CustomerInfo{}, escalation.IssueDetails{BusinessUnit: escalation.BusinessUnitEmissao})
	require.NoError(t, err)
	assert.Equal(t, "emissao_team", out.Protocol.AssignedTeam)

	assert.Error(t, m.ApplyConfig(nil))
	bad := config.Default()
	bad.Escalation.IDStrategy = "random"
	assert.Error(t, m.ApplyConfig(bad))
	assert.Same(t, cfg, m.Config())
}

func TestWatchConfig_AppliesValidRevisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supportmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("escalation:\n  default_team: first_line\n"), 0o600))

	m, _ := newMesh(t)
	w, err := m.WatchConfig(path, func(o *config.WatchOptions) { o.Debounce = 20 * time.Millisecond })
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(path, []byte("detector:\n  human_request_phrases: [\"me liga\"]\nescalation:\n  default_team: second_line\n"), 0o600))
	assert.Eventually(t, func() bool {
		return m.Config().Escalation.DefaultTeam == "second_line"
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, m.Detect("por favor me liga").NeedsHandoff)

	require.NoError(t, os.WriteFile(path, []byte("escalation:\n  store: redis\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "second_line", m.Config().Escalation.DefaultTeam)
}

func TestNew_ContainerStoreAndTeams(t *testing.T) {
	cfg := config.Default()
	cfg.Escalation.Store = config.StoreContainer
	cfg.Escalation.IDStrategy = config.IDStrategySequential

	orch := team.NewOrchestrator(team.NewInMemoryTeam("cards"))
	m, _ := newMesh(t, func(o *Options) {
		o.Config = cfg
		o.Orchestrator = orch
	})
	require.NoError(t, m.RegisterTeam(team.NewInMemoryTeam("pix")))
	assert.Equal(t, []string{"cards", "pix"}, m.Synchronizer().Teams())

	n, err := m.Synchronizer().PropagateCustomerContext(map[string]any{"tier": "gold"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := m.HandleMessage(context.Background(), "s10", "falar com humano", escalation.CustomerInfo{}, escalation.IssueDetails{})
	require.NoError(t, err)
	assert.Regexp(t, `^human_support-\d+$`, out.Protocol.ID)

	raw, ok := orch.GetState("team_states")
	require.True(t, ok)
	assert.NotNil(t, raw)

	tl := m.TeamStateTool("cards")
	res, err := tl.Call(context.Background(), map[string]any{"operation": "get_insights"})
	require.NoError(t, err)
	assert.Equal(t, false, res.(map[string]any)["found"])

	assert.Error(t, m.RegisterTeam(nil))
}

func TestOrchestratorTeamsReceiveBroadcast(t *testing.T) {
	m, _ := newMesh(t)
	require.NoError(t, m.RegisterTeam(team.NewInMemoryTeam("cards")))
	pix := team.NewInMemoryTeam("pix")
	m.Orchestrator().Add(pix)

	assert.Len(t, m.Orchestrator().Teams(), 2)
	assert.Equal(t, []string{"cards", "pix"}, m.Synchronizer().Teams())

	n, err := m.Synchronizer().PropagateCustomerContext(map[string]any{"customer_id": "c-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok := pix.GetState(core.KeyCustomerContext)
	require.True(t, ok)
	assert.Equal(t, "orchestrator", v.(map[string]any)["source"])
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Escalation.Store = "redis"
	_, err := New(func(o *Options) { o.Config = cfg })
	assert.Error(t, err)
}
