// Package teamstate keeps the per-team state records owned by the
// orchestrator and the Synchronizer that coordinates them: versioned writes,
// cross-team snapshots, customer context broadcast, escalation aggregation
// and the merged customer journey.
//
// Every operation returns a safe default together with a typed error. Errors
// wrapping ErrUnavailable mean a collaborator or the store is missing;
// errors wrapping ErrUnexpected cover everything else, including recovered
// panics. Both are logged by the Synchronizer before being returned, so
// callers may ignore them when partial visibility is acceptable.
package teamstate
