// Package lifecycle defines the processing states of an uploaded image and
// the transitions allowed between them.
//
//	PENDING ──► AVAILABLE
//	   │
//	   └──────► FAILED
//
// AVAILABLE and FAILED are terminal. A record leaves PENDING at most once;
// stores enforce that with a conditional write on the current status.
package lifecycle

import "fmt"

// Status is the processing state of an image record.
type Status string

const (
	// StatusPending is set by the upload initiator until the blob is reconciled.
	StatusPending Status = "PENDING"
	// StatusAvailable means the blob exists and its size is recorded.
	StatusAvailable Status = "AVAILABLE"
	// StatusFailed means reconciliation gave up on the record.
	StatusFailed Status = "FAILED"
)

// validTransitions maps the current status to the set of allowed targets.
var validTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusAvailable: true, StatusFailed: true},
	StatusAvailable: {},
	StatusFailed:    {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(validTransitions[s]) == 0
}

func (s Status) String() string { return string(s) }

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// TransitionError is returned by Check for a disallowed transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Check returns a *TransitionError when from → to is not allowed.
func Check(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q, allowed: PENDING, AVAILABLE, FAILED", s)
	}
	return st, nil
}
