package recordings

import (
	"errors"
	"fmt"
	"time"

	"paricus-portal/internal/cdrstore"
)

var (
	ErrQueryFailed   = errors.New("recordings: query failed")
	ErrNotFound      = errors.New("recordings: not found")
	ErrInvalidFilter = errors.New("recordings: invalid filter")
)

// QueryError reports a failed pool acquisition or query round-trip.
// errors.Is matches both ErrQueryFailed and the underlying cause, so callers can also test
// for cdrstore.ErrPoolExhausted.
type QueryError struct {
	Op      string
	Elapsed time.Duration
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("recordings: %s failed after %s: %v", e.Op, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{ErrQueryFailed, e.Err}
}

// Unavailable reports whether the store could not be reached or did not answer in time.
func (e *QueryError) Unavailable() bool {
	return cdrstore.IsUnavailable(e.Err)
}
