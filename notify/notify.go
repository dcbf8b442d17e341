package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/supportmesh/escalation"
	"github.com/hupe1980/supportmesh/logging"
)

// Priority is the delivery priority of a Notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PriorityFor maps an urgency level to a notification priority. Unknown
// urgencies map to PriorityNormal.
func PriorityFor(u escalation.Urgency) Priority {
	switch u {
	case escalation.UrgencyLow:
		return PriorityLow
	case escalation.UrgencyHigh:
		return PriorityHigh
	case escalation.UrgencyCritical:
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}

// Notification is the payload accepted by a Gateway.
type Notification struct {
	Target     string   `json:"target"`
	Message    string   `json:"message"`
	Priority   Priority `json:"priority"`
	ProtocolID string   `json:"protocol_id"`
}

// NewNotification builds the payload for p addressed to target. An empty
// target falls back to the protocol's assigned team.
func NewNotification(p *escalation.Protocol, target string) Notification {
	if target == "" {
		target = p.AssignedTeam
	}
	return Notification{
		Target:     target,
		Message:    p.String(),
		Priority:   PriorityFor(p.Analysis.Urgency),
		ProtocolID: p.ID,
	}
}

// Gateway delivers notifications out of band.
type Gateway interface {
	Send(ctx context.Context, n Notification) error
}

var (
	_ Gateway = (*MemoryGateway)(nil)
	_ Gateway = (*LogGateway)(nil)
)

// MemoryGateway records every notification in memory. SetError makes
// subsequent sends fail after recording.
type MemoryGateway struct {
	mu            sync.Mutex
	notifications []Notification
	err           error
}

// NewMemoryGateway creates an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

// Send implements Gateway.
func (g *MemoryGateway) Send(_ context.Context, n Notification) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notifications = append(g.notifications, n)
	return g.err
}

// Notifications returns a copy of everything sent so far.
func (g *MemoryGateway) Notifications() []Notification {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Notification, len(g.notifications))
	copy(out, g.notifications)
	return out
}

// SetError injects a delivery failure.
func (g *MemoryGateway) SetError(err error) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

// LogGateway writes notifications to a logger. Useful when no real channel
// is configured.
type LogGateway struct {
	logger logging.Logger
}

// NewLogGateway creates a LogGateway; a nil logger discards output.
func NewLogGateway(logger logging.Logger) *LogGateway {
	return &LogGateway{logger: logging.OrNoOp(logger)}
}

// Send implements Gateway.
func (g *LogGateway) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	g.logger.Info("escalation notification",
		"target", n.Target,
		"priority", string(n.Priority),
		"protocol_id", n.ProtocolID,
		"message", n.Message,
	)
	return nil
}
