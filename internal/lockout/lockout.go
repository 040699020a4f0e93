// Package lockout implements the per-session brute-force policy: a failed
// attempt counter and a time-boxed lockout derived purely from elapsed
// time and counts. All operations are pure functions over State; the
// policy never looks at any other session.
package lockout

import "time"

const (
	// Threshold is the number of failed attempts that triggers a lockout.
	Threshold = 3

	// Duration is how long a lockout lasts once triggered.
	Duration = time.Hour
)

// State is a session's lockout record. The zero value means no failures
// recorded and not locked.
type State struct {
	Attempts int
	Until    time.Time
}

// Locked reports whether the state is locked at the given instant and, if
// so, how much lockout time remains.
func (s State) Locked(now time.Time) (time.Duration, bool) {
	if !s.Until.IsZero() && now.Before(s.Until) {
		return s.Until.Sub(now), true
	}
	return 0, false
}

// Expired reports whether a previously set lockout has lapsed. A state
// that never locked is not expired.
func (s State) Expired(now time.Time) bool {
	return !s.Until.IsZero() && !now.Before(s.Until)
}

// Failure returns the state after recording one failed attempt at the
// given instant. Crossing the threshold sets the lockout expiry. A lapsed
// lockout is cleared before the new failure is counted, so an attempt made
// after expiry starts a fresh window.
func (s State) Failure(now time.Time) State {
	if s.Expired(now) {
		s = State{}
	}
	s.Attempts++
	if s.Attempts >= Threshold {
		s.Until = now.Add(Duration)
	}
	return s
}

// Success returns the cleared state. Both the counter and the lockout
// expiry are reset in one step.
func (s State) Success() State {
	return State{}
}

// MinutesLeft converts a remaining duration to whole minutes, rounded up,
// for user-facing lockout messages. Never less than 1 for a positive
// remainder.
func MinutesLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int((d + time.Minute - 1) / time.Minute)
	return m
}
