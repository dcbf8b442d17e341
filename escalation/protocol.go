package escalation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CustomerInfo describes the customer being escalated. All fields are optional.
type CustomerInfo struct {
	CustomerID   string         `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	Name         string         `json:"name,omitempty" yaml:"name,omitempty"`
	Email        string         `json:"email,omitempty" yaml:"email,omitempty"`
	Phone        string         `json:"phone,omitempty" yaml:"phone,omitempty"`
	Document     string         `json:"document,omitempty" yaml:"document,omitempty"`
	AccountType  string         `json:"account_type,omitempty" yaml:"account_type,omitempty"`
	BusinessUnit BusinessUnit   `json:"business_unit,omitempty" yaml:"business_unit,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IssueDetails describes the problem that led to the escalation.
type IssueDetails struct {
	Summary             string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Category            string              `json:"category,omitempty" yaml:"category,omitempty"`
	BusinessUnit        BusinessUnit        `json:"business_unit,omitempty" yaml:"business_unit,omitempty"`
	ConversationHistory ConversationHistory `json:"conversation_history" yaml:"conversation_history"`
	AttemptedSolutions  []string            `json:"attempted_solutions,omitempty" yaml:"attempted_solutions,omitempty"`
	AttemptCount        int                 `json:"attempt_count,omitempty" yaml:"attempt_count,omitempty"`
	TransactionIDs      []string            `json:"transaction_ids,omitempty" yaml:"transaction_ids,omitempty"`
}

// ConversationHistory is a transcript normalized to a single string. When
// decoded, a list of strings is joined with newlines and null becomes "".
type ConversationHistory string

// NormalizeConversationHistory converts v into a ConversationHistory.
// Accepted inputs are nil, string, ConversationHistory, []string and []any
// holding only strings.
func NormalizeConversationHistory(v any) (ConversationHistory, error) {
	switch h := v.(type) {
	case nil:
		return "", nil
	case string:
		return ConversationHistory(h), nil
	case ConversationHistory:
		return h, nil
	case []string:
		return ConversationHistory(strings.Join(h, "\n")), nil
	case []any:
		lines := make([]string, len(h))
		for i, item := range h {
			s, ok := item.(string)
			if !ok {
				return "", invalid("conversation_history", v, "list element %d is %T, want string", i, item)
			}
			lines[i] = s
		}
		return ConversationHistory(strings.Join(lines, "\n")), nil
	default:
		return "", invalid("conversation_history", v, "must be a string, a list of strings or null, got %T", v)
	}
}

// UnmarshalJSON accepts a string, a list of strings or null.
func (c *ConversationHistory) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h, err := NormalizeConversationHistory(raw)
	if err != nil {
		return err
	}
	*c = h
	return nil
}

// UnmarshalYAML accepts a string, a sequence of strings or null.
func (c *ConversationHistory) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	switch node.Kind {
	case yaml.SequenceNode:
		var items []any
		if err := node.Decode(&items); err != nil {
			return err
		}
		raw = items
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			raw = nil
		} else {
			raw = node.Value
		}
	default:
		return invalid("conversation_history", node.Value, "must be a string, a list of strings or null")
	}
	h, err := NormalizeConversationHistory(raw)
	if err != nil {
		return err
	}
	*c = h
	return nil
}

// Protocol is the record a human operator receives on handoff. It is
// immutable after construction except for its Status.
type Protocol struct {
	ID           string       `json:"protocol_id" yaml:"protocol_id"`
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`
	Analysis     Analysis     `json:"analysis" yaml:"analysis"`
	Customer     CustomerInfo `json:"customer" yaml:"customer"`
	Issue        IssueDetails `json:"issue" yaml:"issue"`
	AssignedTeam string       `json:"assigned_team" yaml:"assigned_team"`
	Status       Status       `json:"status" yaml:"status"`
}

// SetStatus moves the protocol to s.
func (p *Protocol) SetStatus(s Status) error {
	if !s.Valid() {
		return invalid("status", s, "unknown protocol status")
	}
	p.Status = s
	return nil
}

// String is a single-line summary suitable for notifications.
func (p *Protocol) String() string {
	summary := p.Issue.Summary
	if summary == "" {
		summary = "no summary"
	}
	return fmt.Sprintf("[%s] escalation %s for team %s: reason=%s urgency=%s emotion=%s customer=%s: %s",
		p.Status, p.ID, p.AssignedTeam, p.Analysis.Reason, p.Analysis.Urgency, p.Analysis.Emotion,
		p.Customer.CustomerID, summary)
}
