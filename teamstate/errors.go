package teamstate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable reports a missing store or collaborator.
	ErrUnavailable = errors.New("teamstate: unavailable")
	// ErrUnsupported reports a collaborator lacking the state capability.
	ErrUnsupported = fmt.Errorf("%w: state capability not supported", ErrUnavailable)
	// ErrUnexpected wraps any other failure, including recovered panics.
	ErrUnexpected = errors.New("teamstate: unexpected error")
	// ErrInvalidArgument reports a rejected call argument such as an empty team name.
	ErrInvalidArgument = errors.New("teamstate: invalid argument")
)

// OpError records the operation and team a failure happened in.
type OpError struct {
	Op   string
	Team string
	Err  error
}

func (e *OpError) Error() string {
	if e.Team == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [team=%s]: %v", e.Op, e.Team, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// classify wraps err so that it matches exactly one of ErrUnavailable,
// ErrInvalidArgument or ErrUnexpected.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrUnexpected):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
}
