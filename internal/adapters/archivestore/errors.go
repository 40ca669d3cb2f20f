package archivestore

import "errors"

var (
	// ErrInvalidPeriod rejects period names that cannot form a key prefix.
	ErrInvalidPeriod = errors.New("invalid archive period")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("archive store closed")
)
