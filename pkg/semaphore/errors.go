package semaphore

import "fmt"

// ErrorCode represents a Semaphore error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents an invalid configuration error
	ErrInvalidConfig

	// ErrFieldCreation represents a field creation error
	ErrFieldCreation

	// ErrInvalidKey represents a malformed public or private key
	ErrInvalidKey

	// ErrInvalidInput represents malformed input such as an empty topic
	ErrInvalidInput

	// ErrInvalidIndex represents a member index outside the access set
	ErrInvalidIndex

	// ErrWitnessLength represents a witness whose shape does not match the
	// access-set tree
	ErrWitnessLength

	// ErrNotMember reports a private key whose public key is not in the set
	ErrNotMember

	// ErrConstraintViolation reports a trace that failed the prover's own
	// constraint check; it indicates an AIR bug, not a bad witness
	ErrConstraintViolation

	// ErrProofGeneration represents a proof generation error
	ErrProofGeneration

	// ErrVerificationFailure represents a rejected signal; it carries no
	// detail about which check rejected it
	ErrVerificationFailure

	// ErrReplayRejection reports a nullifier already recorded for the topic
	ErrReplayRejection
)

// SemaphoreError represents a Semaphore protocol error
type SemaphoreError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *SemaphoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("semaphore error [%d]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("semaphore error [%d]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *SemaphoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *SemaphoreError) Is(target error) bool {
	t, ok := target.(*SemaphoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, message string, cause error) *SemaphoreError {
	return &SemaphoreError{Code: code, Message: message, Cause: cause}
}
