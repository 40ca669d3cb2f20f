package archive

import (
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/domain/model"
)

var (
	// ErrMissingMeta aborts a merge; it is never read as "no data yet".
	ErrMissingMeta = fmt.Errorf("%w: archive metadata marker missing", model.ErrDataIntegrity)
	// ErrFrozen rejects writes to a frozen archive.
	ErrFrozen = errors.New("archive is frozen")
)
