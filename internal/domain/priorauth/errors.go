package priorauth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a request or a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an optimistic concurrency check fails on
// persist. Callers should reload the aggregate and retry.
var ErrConflict = errors.New("concurrent modification detected")

// InvalidTransitionError reports an operation that is illegal in the
// request's current state. Both states are carried for diagnostics.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// ValidationError reports malformed input rejected before any aggregate
// mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing aggregate or referenced entity by kind
// and identifier. It matches ErrNotFound via errors.Is.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
