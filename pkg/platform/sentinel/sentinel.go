// Package sentinel defines the error facts stores and adapters report.
// Services translate them into coded domain errors; handlers never see them.
package sentinel

import "errors"

// Facts about a resource, not judgments about input. Validation failures are
// coded domain errors and never reach this package.
var (
	// ErrNotFound: no record with that identity exists.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness rule rejected the write, such as a second
	// pending submission for the same user and doc type.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the record exists but is not in a state the operation
	// accepts, such as deciding an already decided submission.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the backing dependency failed or timed out. Retryable.
	ErrUnavailable = errors.New("unavailable")
)
