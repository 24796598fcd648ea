package clinical

import "fmt"

// ValidationError reports a single bad input field. The whole write fails on
// the first offending field; nothing is partially committed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// AccessDenied distinguishes "not authorized" from "bad input". It is always
// preceded by an audit entry carrying the same reason.
type AccessDenied struct {
	Reason string
}

func (e *AccessDenied) Error() string {
	return "access denied: " + e.Reason
}

// InvalidTransition reports an attempt to move an entity out of a state it
// cannot leave, such as resolving an already-resolved diagnosis.
type InvalidTransition struct {
	Entity       string
	CurrentState string
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: %s is already %s", e.Entity, e.CurrentState)
}
