package core

import "github.com/google/uuid"

// NewID generates a new random (v4) UUID string used for protocol and
// interaction identifiers.
func NewID() string { return uuid.NewString() }
