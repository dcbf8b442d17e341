// Package escalation holds the escalation data model (reasons, urgency,
// emotion, business units, analyses and protocols), the protocol Builder and
// the analyzers that turn a customer utterance into an Analysis.
//
// Construction fails fast: every constructor validates its input and returns
// a *ValidationError instead of coercing invalid data.
package escalation
