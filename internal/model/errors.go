package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a lookup has no result.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by stores when a write violates a uniqueness,
// key or check constraint. Repeating the write cannot succeed.
var ErrConflict = errors.New("constraint conflict")

// LookupError wraps a failed taxonomy or rule read so callers can log which
// operation failed while still matching the cause with errors.Is.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("taxonomy lookup %s: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
