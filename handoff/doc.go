// Package handoff implements the stateless human-handoff detector. Given a raw
// customer utterance it decides whether the conversation should leave the
// automated specialists and why. Detection is a pure function of the message
// and the detector's lexicon; it performs no I/O and keeps no state.
package handoff
