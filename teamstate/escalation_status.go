package teamstate

import (
	"sort"
)

// SeverityHigh marks a flag as critical.
const SeverityHigh = "high"

// CriticalFlag is a high severity escalation flag raised by a team.
type CriticalFlag struct {
	Team      string `json:"team"`
	Type      string `json:"type"`
	Details   any    `json:"details"`
	Timestamp string `json:"timestamp"`
}

// EscalationStatus aggregates escalation flags across all teams.
type EscalationStatus struct {
	HasEscalations       bool           `json:"has_escalations"`
	EscalationCount      int            `json:"escalation_count"`
	CriticalFlags        []CriticalFlag `json:"critical_flags"`
	TeamsWithEscalations []string       `json:"teams_with_escalations"`
}

// CheckEscalationStatus scans every team's escalation flags. Teams and flag
// types are visited in ascending name order. On failure it returns an empty
// status.
func (s *Synchronizer) CheckEscalationStatus() (EscalationStatus, error) {
	status := EscalationStatus{
		CriticalFlags:        []CriticalFlag{},
		TeamsWithEscalations: []string{},
	}

	records, err := s.snapshot(OpCheckEscalationStatus)
	if err != nil {
		return status, err
	}

	for _, team := range sortedNames(records) {
		flags := asMap(records[team].State[KeyEscalationFlags])
		if len(flags) == 0 {
			continue
		}
		status.HasEscalations = true
		status.TeamsWithEscalations = append(status.TeamsWithEscalations, team)
		status.EscalationCount += len(flags)

		types := make([]string, 0, len(flags))
		for flagType := range flags {
			types = append(types, flagType)
		}
		sort.Strings(types)

		for _, flagType := range types {
			entry := asMap(flags[flagType])
			if entry == nil {
				continue
			}
			if severity, _ := entry["severity"].(string); severity != SeverityHigh {
				continue
			}
			status.CriticalFlags = append(status.CriticalFlags, CriticalFlag{
				Team:      team,
				Type:      flagType,
				Details:   entry["details"],
				Timestamp: timestampOf(entry),
			})
		}
	}
	return status, nil
}
