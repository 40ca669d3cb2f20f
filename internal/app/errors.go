package service

import (
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/domain/model"
)

var (
	// ErrRunInProgress rejects a run while another one is active in this process.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrUnknownRun is returned for a run id the tracker does not hold.
	ErrUnknownRun = fmt.Errorf("run %w", model.ErrNotFound)
	// ErrUnknownMode rejects a run mode other than full, merge and event.
	ErrUnknownMode = errors.New("unknown run mode")
	// ErrHistoryMissing aborts a merge when no historical archive is stored.
	ErrHistoryMissing = fmt.Errorf("%w: historical archive not stored", model.ErrDataIntegrity)
	// ErrArchiveUpdate reports profiles written but the current archive left behind.
	ErrArchiveUpdate = errors.New("current archive update failed")
)
