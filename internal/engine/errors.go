package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/loam/internal/ir"
)

// PersistError reports a mutation that was computed but could not be
// written to the event log. The engine's graph is left unchanged, so the
// mutation can be retried.
type PersistError struct {
	// Op names the engine operation, e.g. "add_node".
	Op string

	// GraphID identifies the affected graph.
	GraphID ir.GraphID

	// Events is the number of events that were not persisted.
	Events int

	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: persist %d events to graph %s: %v", e.Op, e.Events, e.GraphID, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError returns true if err is or wraps a PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
