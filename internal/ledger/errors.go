package ledger

import "errors"

// TransientError marks a write failure worth retrying: the store was
// rate-limiting or temporarily unavailable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient ledger write error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a write failure retrying cannot fix: bad credentials,
// malformed target range, quota permanently exceeded.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent ledger write error: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried by the caller.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
