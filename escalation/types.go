package escalation

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reason is the closed set of escalation causes.
type Reason string

const (
	ReasonExplicitRequest     Reason = "explicit_request"
	ReasonFrustrationDetected Reason = "frustration_detected"
	ReasonComplexIssue        Reason = "complex_issue"
	ReasonHighValue           Reason = "high_value"
	ReasonSecurityConcern     Reason = "security_concern"
	ReasonMultipleAttempts    Reason = "multiple_attempts"
	ReasonSystemLimitation    Reason = "system_limitation"
)

var reasons = []Reason{
	ReasonExplicitRequest, ReasonFrustrationDetected, ReasonComplexIssue, ReasonHighValue,
	ReasonSecurityConcern, ReasonMultipleAttempts, ReasonSystemLimitation,
}

// Urgency is how quickly a human must pick up the escalation.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

var urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

// Emotion is the customer's perceived emotional state.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionSatisfied  Emotion = "satisfied"
	EmotionConfused   Emotion = "confused"
	EmotionFrustrated Emotion = "frustrated"
	EmotionAngry      Emotion = "angry"
	EmotionUrgent     Emotion = "urgent"
)

var emotions = []Emotion{
	EmotionNeutral, EmotionSatisfied, EmotionConfused, EmotionFrustrated, EmotionAngry, EmotionUrgent,
}

// BusinessUnit identifies the product line a customer or issue belongs to.
type BusinessUnit string

const (
	BusinessUnitAdquirencia BusinessUnit = "adquirencia"
	BusinessUnitEmissao     BusinessUnit = "emissao"
	BusinessUnitPagBank     BusinessUnit = "pagbank"
	BusinessUnitGeneral     BusinessUnit = "general"
)

var businessUnits = []BusinessUnit{
	BusinessUnitAdquirencia, BusinessUnitEmissao, BusinessUnitPagBank, BusinessUnitGeneral,
}

// Status is the lifecycle state of a Protocol.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
)

var statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusCancelled}

// Valid reports set membership.
func (r Reason) Valid() bool { return member(reasons, r) }

// Valid reports set membership.
func (u Urgency) Valid() bool { return member(urgencies, u) }

// Valid reports set membership.
func (e Emotion) Valid() bool { return member(emotions, e) }

// Valid reports set membership.
func (b BusinessUnit) Valid() bool { return member(businessUnits, b) }

// Valid reports set membership.
func (s Status) Valid() bool { return member(statuses, s) }

// ParseReason parses s case-insensitively.
func ParseReason(s string) (Reason, error) { return parseEnum("reason", s, reasons) }

// ParseUrgency parses s case-insensitively.
func ParseUrgency(s string) (Urgency, error) { return parseEnum("urgency", s, urgencies) }

// ParseEmotion parses s case-insensitively.
func ParseEmotion(s string) (Emotion, error) { return parseEnum("emotion", s, emotions) }

// ParseBusinessUnit parses s case-insensitively.
func ParseBusinessUnit(s string) (BusinessUnit, error) {
	return parseEnum("business_unit", s, businessUnits)
}

// ParseStatus parses s case-insensitively.
func ParseStatus(s string) (Status, error) { return parseEnum("status", s, statuses) }

func member[T ~string](set []T, v T) bool {
	for _, m := range set {
		if m == v {
			return true
		}
	}
	return false
}

func parseEnum[T ~string](field, s string, set []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if member(set, v) {
		return v, nil
	}
	allowed := make([]string, len(set))
	for i, m := range set {
		allowed[i] = string(m)
	}
	return "", invalid(field, s, "must be one of [%s]", strings.Join(allowed, ", "))
}

// Empty and null values decode to the zero value; required fields are
// enforced by Validate.
func decodeJSONEnum[T ~string](data []byte, field string, set []T) (T, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", invalid(field, string(data), "must be a string")
	}
	if s == "" {
		return "", nil
	}
	return parseEnum(field, s, set)
}

func decodeYAMLEnum[T ~string](node *yaml.Node, field string, set []T) (T, error) {
	var s string
	if err := node.Decode(&s); err != nil {
		return "", invalid(field, node.Value, "must be a string")
	}
	if s == "" {
		return "", nil
	}
	return parseEnum(field, s, set)
}

// UnmarshalJSON rejects values outside the closed set.
func (r *Reason) UnmarshalJSON(data []byte) error {
	v, err := decodeJSONEnum(data, "reason", reasons)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UnmarshalYAML rejects values outside the closed set.
func (r *Reason) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLEnum(node, "reason", reasons)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// UnmarshalJSON rejects values outside the closed set.
func (u *Urgency) UnmarshalJSON(data []byte) error {
	v, err := decodeJSONEnum(data, "urgency", urgencies)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// UnmarshalYAML rejects values outside the closed set.
func (u *Urgency) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLEnum(node, "urgency", urgencies)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// UnmarshalJSON rejects values outside the closed set.
func (e *Emotion) UnmarshalJSON(data []byte) error {
	v, err := decodeJSONEnum(data, "emotion", emotions)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// UnmarshalYAML rejects values outside the closed set.
func (e *Emotion) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLEnum(node, "emotion", emotions)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// UnmarshalJSON rejects values outside the closed set.
func (b *BusinessUnit) UnmarshalJSON(data []byte) error {
	v, err := decodeJSONEnum(data, "business_unit", businessUnits)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// UnmarshalYAML rejects values outside the closed set.
func (b *BusinessUnit) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLEnum(node, "business_unit", businessUnits)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// UnmarshalJSON rejects values outside the closed set.
func (s *Status) UnmarshalJSON(data []byte) error {
	v, err := decodeJSONEnum(data, "status", statuses)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalYAML rejects values outside the closed set.
func (s *Status) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLEnum(node, "status", statuses)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
