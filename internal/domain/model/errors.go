package model

import "errors"

// Error taxonomy shared by every pipeline stage. Callers match with errors.Is.
var (
	// ErrNotFound is expected and non-fatal: no result document, no profile yet.
	ErrNotFound = errors.New("not found")
	// ErrDataIntegrity aborts a run: duplicate profiles, missing archive marker.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrTransientIO is retryable by the caller, e.g. a failed chunk commit.
	ErrTransientIO = errors.New("transient io failure")
)
