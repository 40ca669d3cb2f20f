package resultstore

import "errors"

var (
	// ErrInvalidCursor rejects a cursor this store did not issue.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrUnexpectedStatus is a non-retryable HTTP status from the result store.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrDuplicateEvent rejects a second event with the same id.
	ErrDuplicateEvent = errors.New("duplicate event id")

	errRetryable = errors.New("retryable")
)
