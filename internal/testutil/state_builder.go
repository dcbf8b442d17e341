package testutil

// StateBuilder provides a fluent helper for constructing team state maps in
// tests. Example:
//
//	st := NewStateBuilder().Finding("limit raised").Flag("fraud", "high", "chargeback").Build()
//
// Chain only the parts you need; the canonical empty schema is the default.
type StateBuilder struct {
	analysis     map[string]any
	findings     []any
	decisions    []any
	flags        map[string]any
	sharing      map[string]any
	interactions []any
	metrics      map[string]any
	extra        map[string]any
}

// NewStateBuilder creates a builder producing the canonical empty schema.
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{
		analysis: map[string]any{},
		flags:    map[string]any{},
		sharing:  map[string]any{},
		metrics:  map[string]any{},
		extra:    map[string]any{},
	}
}

// Analysis sets a customer analysis key (chainable).
func (b *StateBuilder) Analysis(key string, val any) *StateBuilder {
	b.analysis[key] = val
	return b
}

// Finding appends a research finding (chainable).
func (b *StateBuilder) Finding(f any) *StateBuilder { b.findings = append(b.findings, f); return b }

// Decision appends a team decision (chainable).
func (b *StateBuilder) Decision(d any) *StateBuilder { b.decisions = append(b.decisions, d); return b }

// Flag adds an escalation flag entry keyed by flagType (chainable).
func (b *StateBuilder) Flag(flagType, severity string, details any) *StateBuilder {
	b.flags[flagType] = map[string]any{"severity": severity, "details": details}
	return b
}

// FlagAt adds an escalation flag entry with an explicit timestamp (chainable).
func (b *StateBuilder) FlagAt(flagType, severity string, details any, ts string) *StateBuilder {
	b.flags[flagType] = map[string]any{"severity": severity, "details": details, "timestamp": ts}
	return b
}

// Interaction appends an interaction flow entry; an empty ts omits the
// timestamp field (chainable).
func (b *StateBuilder) Interaction(ts, action string) *StateBuilder {
	e := map[string]any{"action": action}
	if ts != "" {
		e["timestamp"] = ts
	}
	b.interactions = append(b.interactions, e)
	return b
}

// Metric sets a quality metric (chainable).
func (b *StateBuilder) Metric(key string, val any) *StateBuilder { b.metrics[key] = val; return b }

// Set sets an arbitrary top level key (chainable).
func (b *StateBuilder) Set(key string, val any) *StateBuilder { b.extra[key] = val; return b }

// Build returns a fresh state map.
func (b *StateBuilder) Build() map[string]any {
	st := map[string]any{
		"customer_analysis": copyMap(b.analysis),
		"research_findings": append([]any{}, b.findings...),
		"team_decisions":    append([]any{}, b.decisions...),
		"escalation_flags":  copyMap(b.flags),
		"context_sharing":   copyMap(b.sharing),
		"interaction_flow":  append([]any{}, b.interactions...),
		"quality_metrics":   copyMap(b.metrics),
	}
	for k, v := range b.extra {
		st[k] = v
	}
	return st
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
