package repository

import (
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound      = fmt.Errorf("profile %w", model.ErrNotFound)
	ErrAlreadyExists = errors.New("profile already exists")
	ErrEmptyID       = errors.New("empty id")
)
