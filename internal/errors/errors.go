package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the client core
var (
	// Session errors
	ErrSessionCorruption = errors.New("session corrupted")
	ErrNoSession         = errors.New("no session")
	ErrNotAuthenticated  = errors.New("not authenticated")

	// Authentication errors
	ErrAuthRejected = errors.New("authentication rejected")

	// Analysis errors
	ErrSubmissionFailed     = errors.New("submission failed")
	ErrIncompleteScan       = errors.New("both nutrition and ingredients images are required")
	ErrSubmissionInProgress = errors.New("submission already in progress")

	// Navigation errors
	ErrMissingNavigationState = errors.New("missing navigation state")

	// Storage errors
	ErrCorruptStore = errors.New("corrupt store")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Kind wraps cause so that it matches both kind and cause with errors.Is
func Kind(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
