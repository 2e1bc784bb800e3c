package orders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed required input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError is a unique-constraint violation reported by the store.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unique constraint %s violated", e.Constraint)
	}
	return fmt.Sprintf("unique constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StorageError wraps any backend failure that is neither not-found nor conflict.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CodeExhaustedError means every code attempt collided with an existing order.
type CodeExhaustedError struct {
	Attempts int
	LastCode string
}

func (e *CodeExhaustedError) Error() string {
	return fmt.Sprintf("order code still conflicting after %d attempts (last %s)", e.Attempts, e.LastCode)
}

// PreconditionError is returned when a caller invokes an operation with
// arguments it must have checked itself.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
