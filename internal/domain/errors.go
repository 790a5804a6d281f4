package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrStudentNotFound is returned when a student identity does not resolve to a record.
	ErrStudentNotFound = errors.New("student not found")
	// ErrQuestNotFound indicates no quest definition exists for a quest type.
	ErrQuestNotFound = errors.New("quest not found")
	// ErrConcurrentUpdate is returned when a compare-and-swap on student XP keeps losing.
	ErrConcurrentUpdate = errors.New("concurrent progression update")
	// ErrLockNotAcquired is returned when the per-student lock could not be taken in time.
	ErrLockNotAcquired = errors.New("student lock not acquired")
	// ErrUnauthorized is returned when the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
)

// FailureKind classifies store errors.
type FailureKind string

const (
	ReadFailure  FailureKind = "read"
	WriteFailure FailureKind = "write"
)

// StoreError wraps a persistence failure with the operation that produced it.
type StoreError struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failure in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ReadErr wraps err as a read failure of op. Sentinel domain errors pass through unchanged.
func ReadErr(op string, err error) error {
	return wrapStore(op, ReadFailure, err)
}

// WriteErr wraps err as a write failure of op. Sentinel domain errors pass through unchanged.
func WriteErr(op string, err error) error {
	return wrapStore(op, WriteFailure, err)
}

func wrapStore(op string, kind FailureKind, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) || isSentinel(err) {
		return err
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func isSentinel(err error) bool {
	for _, s := range []error{
		ErrQuizNotFound, ErrStudentNotFound, ErrQuestNotFound,
		ErrConcurrentUpdate, ErrLockNotAcquired, ErrUnauthorized,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// IsWriteFailure reports whether err is a store write failure.
func IsWriteFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == WriteFailure
}
