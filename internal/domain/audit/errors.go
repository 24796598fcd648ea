package audit

// WriteFailure wraps a failed audit write. It is fatal to the operation that
// triggered it: the caller must treat the access as not granted and the
// mutation as not applied, whatever the policy evaluator said.
type WriteFailure struct {
	Err error
}

func (e *WriteFailure) Error() string {
	return "audit write failure: " + e.Err.Error()
}

func (e *WriteFailure) Unwrap() error {
	return e.Err
}
