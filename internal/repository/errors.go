package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by every store when a referenced row is absent.
var ErrNotFound = errors.New("record not found")

// Entity-specific not-found errors; both match ErrNotFound with errors.Is.
var (
	ErrClientNotFound  = fmt.Errorf("client %w", ErrNotFound)
	ErrProgramNotFound = fmt.Errorf("program %w", ErrNotFound)
)
