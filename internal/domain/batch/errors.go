package batch

import (
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/domain/model"
)

// ErrCancelled is returned when the context ends between chunks.
var ErrCancelled = errors.New("batch write cancelled")

// CommitError reports a failed chunk and what committed before it.
// It matches model.ErrTransientIO: retrying the run is the caller's call.
type CommitError struct {
	Chunk     int
	Chunks    int
	Committed Result
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit chunk %d/%d (%d operations committed): %v", e.Chunk, e.Chunks, e.Committed.CommittedOps, e.Err)
}

// Unwrap exposes both the cause and the transient classification.
func (e *CommitError) Unwrap() []error { return []error{model.ErrTransientIO, e.Err} }
