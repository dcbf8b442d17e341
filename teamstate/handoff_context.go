package teamstate

import (
	"time"
)

// HandoffContext is the shared escalation state of one customer session.
type HandoffContext struct {
	EscalationInProgress bool      `json:"escalation_in_progress"`
	TotalEscalations     int       `json:"total_escalations"`
	LastEscalation       time.Time `json:"last_escalation,omitempty"`
	CurrentProtocolID    string    `json:"current_protocol_id,omitempty"`
	AssignedTeam         string    `json:"assigned_team,omitempty"`
}

// BeginEscalation marks the session as escalated under protocolID and
// returns the updated context.
func (s *Synchronizer) BeginEscalation(sessionID, protocolID, team string) HandoffContext {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	hc := s.sessions[sessionID]
	hc.EscalationInProgress = true
	hc.TotalEscalations++
	hc.LastEscalation = s.now()
	hc.CurrentProtocolID = protocolID
	hc.AssignedTeam = team
	s.sessions[sessionID] = hc
	s.logger.Info("escalation started", "session_id", sessionID, "protocol_id", protocolID, "team", team, "total_escalations", hc.TotalEscalations)
	return hc
}

// CompleteEscalation clears the in-progress marker. It reports false when the
// session has no escalation in progress. Counters are kept.
func (s *Synchronizer) CompleteEscalation(sessionID string) (HandoffContext, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	hc, ok := s.sessions[sessionID]
	if !ok || !hc.EscalationInProgress {
		return hc, false
	}
	hc.EscalationInProgress = false
	hc.CurrentProtocolID = ""
	s.sessions[sessionID] = hc
	return hc, true
}

// HandoffContext returns the session's context; unknown sessions yield the
// zero value.
func (s *Synchronizer) HandoffContext(sessionID string) HandoffContext {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return s.sessions[sessionID]
}
