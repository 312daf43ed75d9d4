package catalogue

import (
	"errors"
	"fmt"
)

// ErrNilWine is returned when a nil record is passed for insertion.
var ErrNilWine = errors.New("nil wine")

// PersistenceError reports a storage failure during a catalogue operation.
// Single-record operations return it directly; batch ingestion wraps it in a
// BatchError.
type PersistenceError struct {
	// Op names the failed operation ("add", "update price", ...).
	Op string

	// Err is the storage error.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// BatchError reports a batch ingestion that stopped at a failing chunk.
//
// Chunks before Chunk committed and stay committed; the failing chunk was
// rolled back in full; later chunks were not attempted.
type BatchError struct {
	// Committed is the number of records persisted before the failure.
	Committed int

	// Chunk is the zero-based index of the chunk that failed.
	Chunk int

	// Err is the cause, usually a *PersistenceError.
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch ingest: chunk %d failed after %d committed: %v", e.Chunk, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err, or anything it wraps, is a
// storage failure.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func persistence(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
