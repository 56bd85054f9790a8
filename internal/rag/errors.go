package rag

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed input (empty text, bad profile id).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ProviderError reports a transient embedding backend failure. It is retryable.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }

// ConsistencyError reports that a re-ingestion deleted a profile's chunks but
// failed before the replacement set was written. The profile is left with zero
// chunks; retrying the same call is the recovery path.
type ConsistencyError struct {
	ProfileID int64
	Err       error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("profile %d left with zero chunks after failed re-ingestion: %v", e.ProfileID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient provider failure worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
