package teamstate

import (
	"sort"

	"github.com/hupe1980/supportmesh/core"
)

// Journey event types.
const (
	EventRouting         = "routing"
	EventTeamInteraction = "team_interaction"
)

// JourneyEvent is one step of the merged customer timeline.
type JourneyEvent struct {
	Type      string         `json:"type"`
	Team      string         `json:"team,omitempty"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// GetCustomerJourney merges the orchestrator's routing decisions and every
// team's interaction flow into one timeline sorted ascending by timestamp
// string. Entries without a timestamp sort first. Ties keep enumeration
// order: routing decisions, then teams by name, each in list order.
//
// A missing orchestrator contributes no routing events.
func (s *Synchronizer) GetCustomerJourney() ([]JourneyEvent, error) {
	var events []JourneyEvent

	if s.orchestrator != nil {
		err := s.guard(OpGetCustomerJourney, "", func() error {
			raw, _ := s.orchestrator.GetState(core.KeyRoutingDecisions)
			for _, item := range asSlice(raw) {
				entry := asMap(item)
				if entry == nil {
					continue
				}
				team, _ := entry["team"].(string)
				events = append(events, JourneyEvent{
					Type:      EventRouting,
					Team:      team,
					Timestamp: timestampOf(entry),
					Data:      cloneState(entry),
				})
			}
			return nil
		})
		if err != nil {
			return []JourneyEvent{}, err
		}
	}

	records, err := s.snapshot(OpGetCustomerJourney)
	if err != nil {
		return []JourneyEvent{}, err
	}

	for _, team := range sortedNames(records) {
		for _, item := range asSlice(records[team].State[KeyInteractionFlow]) {
			entry := asMap(item)
			if entry == nil {
				continue
			}
			events = append(events, JourneyEvent{
				Type:      EventTeamInteraction,
				Team:      team,
				Timestamp: timestampOf(entry),
				Data:      entry,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })

	if events == nil {
		events = []JourneyEvent{}
	}
	return events, nil
}
