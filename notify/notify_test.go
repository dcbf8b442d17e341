package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/escalation"
	"github.com/hupe1980/supportmesh/logging"
)

func buildProtocol(t *testing.T, urgency escalation.Urgency) *escalation.Protocol {
	t.Helper()
	p, err := escalation.NewBuilder().Build(escalation.Analysis{
		ShouldEscalate: true,
		Reason:         escalation.ReasonSecurityConcern,
		Confidence:     0.7,
		Urgency:        urgency,
		Emotion:        escalation.EmotionUrgent,
	}, escalation.CustomerInfo{CustomerID: "c-9"}, escalation.IssueDetails{Summary: "suspicious login"}, "security")
	require.NoError(t, err)
	return p
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityLow, PriorityFor(escalation.UrgencyLow))
	assert.Equal(t, PriorityNormal, PriorityFor(escalation.UrgencyMedium))
	assert.Equal(t, PriorityHigh, PriorityFor(escalation.UrgencyHigh))
	assert.Equal(t, PriorityUrgent, PriorityFor(escalation.UrgencyCritical))
	assert.Equal(t, PriorityNormal, PriorityFor("bogus"))
}

func TestNewNotification(t *testing.T) {
	p := buildProtocol(t, escalation.UrgencyCritical)

	n := NewNotification(p, "")
	assert.Equal(t, "security", n.Target)
	assert.Equal(t, PriorityUrgent, n.Priority)
	assert.Equal(t, p.ID, n.ProtocolID)
	assert.Contains(t, n.Message, "suspicious login")

	assert.Equal(t, "#oncall", NewNotification(p, "#oncall").Target)
}

func TestMemoryGateway(t *testing.T) {
	g := NewMemoryGateway()
	p := buildProtocol(t, escalation.UrgencyHigh)

	require.NoError(t, g.Send(context.Background(), NewNotification(p, "human_support")))

	boom := errors.New("channel down")
	g.SetError(boom)
	assert.ErrorIs(t, g.Send(context.Background(), NewNotification(p, "human_support")), boom)

	got := g.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, p.ID, got[0].ProtocolID)

	var nilGateway *MemoryGateway
	assert.NoError(t, nilGateway.Send(context.Background(), Notification{}))
	assert.Nil(t, nilGateway.Notifications())
}

func TestLogGateway(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json", Output: &buf})
	g := NewLogGateway(logger)

	p := buildProtocol(t, escalation.UrgencyLow)
	require.NoError(t, g.Send(context.Background(), NewNotification(p, "human_support")))
	assert.Contains(t, buf.String(), p.ID)
	assert.Contains(t, buf.String(), `"priority":"low"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.Send(ctx, Notification{}), context.Canceled)
}
