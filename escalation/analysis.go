package escalation

import (
	"math"
)

// Analysis is the structured judgement on whether and why a conversation
// must be handed to a human.
type Analysis struct {
	ShouldEscalate bool     `json:"should_escalate" yaml:"should_escalate"`
	Reason         Reason   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Confidence     float64  `json:"confidence" yaml:"confidence"`
	Urgency        Urgency  `json:"urgency" yaml:"urgency"`
	Emotion        Emotion  `json:"emotion" yaml:"emotion"`
	Reasoning      string   `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Indicators     []string `json:"indicators,omitempty" yaml:"indicators,omitempty"`
}

// NewAnalysis validates and returns an Analysis. Indicators are copied.
func NewAnalysis(a Analysis) (Analysis, error) {
	if err := a.Validate(); err != nil {
		return Analysis{}, err
	}
	a.Indicators = append([]string(nil), a.Indicators...)
	return a, nil
}

// Validate checks confidence range and enum membership. An empty Reason is
// accepted only when ShouldEscalate is false.
func (a Analysis) Validate() error {
	if math.IsNaN(a.Confidence) || a.Confidence < 0 || a.Confidence > 1 {
		return invalid("confidence", a.Confidence, "must be within [0, 1]")
	}
	if a.Reason == "" {
		if a.ShouldEscalate {
			return invalid("reason", a.Reason, "is required when should_escalate is true")
		}
	} else if !a.Reason.Valid() {
		return invalid("reason", a.Reason, "unknown escalation reason")
	}
	if !a.Urgency.Valid() {
		return invalid("urgency", a.Urgency, "unknown urgency level")
	}
	if !a.Emotion.Valid() {
		return invalid("emotion", a.Emotion, "unknown customer emotion")
	}
	return nil
}
