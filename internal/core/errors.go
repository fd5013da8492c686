package core

import (
	"errors"
	"fmt"
)

var (
	ErrAdmissionDenied  = errors.New("admission denied")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrNotFound         = errors.New("not found")
	ErrExecutionFailed  = errors.New("execution failed")
	ErrPhaseViolation   = errors.New("phase violation")
	ErrConfig           = errors.New("invalid configuration")
	ErrTokenHeld        = errors.New("token already held")
)

// DeniedError carries the reason a signal was refused by admission control
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("admission denied: %s", e.Reason)
}

// Is lets errors.Is match DeniedError against ErrAdmissionDenied
func (e *DeniedError) Is(target error) bool {
	return target == ErrAdmissionDenied
}

// Deny returns a DeniedError for the formatted reason
func Deny(format string, args ...interface{}) error {
	return &DeniedError{Reason: fmt.Sprintf(format, args...)}
}
