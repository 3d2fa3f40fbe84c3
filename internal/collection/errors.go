package collection

import (
	"errors"
	"fmt"
)

// ResolveErrorCode categorizes membership resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeInvalidCandidate indicates the candidate is not a registered
	// entity. This is caller misuse and is never retried.
	ErrCodeInvalidCandidate ResolveErrorCode = "INVALID_CANDIDATE_TYPE"

	// ErrCodeStoreFailure indicates the store could not execute a query.
	ErrCodeStoreFailure ResolveErrorCode = "STORE_EXECUTION_FAILURE"
)

// ErrInvalidCandidateType matches every invalid candidate error via
// errors.Is.
var ErrInvalidCandidateType = errors.New("invalid candidate type")

// ResolveError is returned by Contains and by materialization.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Message is a human-readable description.
	Message string

	// CandidateType is the Go type (or entity type) of the rejected
	// candidate, for invalid candidate errors.
	CandidateType string

	// Collection identifies the collection instance.
	Collection string

	// Cause is the underlying store error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.CandidateType != "" {
		msg += fmt.Sprintf(" (candidate=%s)", e.CandidateType)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the store error so callers can inspect it.
func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrInvalidCandidateType) match.
func (e *ResolveError) Is(target error) bool {
	return target == ErrInvalidCandidateType && e.Code == ErrCodeInvalidCandidate
}

// IsInvalidCandidate returns true if the error is an invalid candidate error.
// Uses errors.As to handle wrapped errors.
func IsInvalidCandidate(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidCandidate
	}
	return false
}

// IsStoreFailure returns true if the error is a store execution failure.
// Uses errors.As to handle wrapped errors.
func IsStoreFailure(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStoreFailure
	}
	return false
}

func invalidCandidate(candidateType, message string) *ResolveError {
	return &ResolveError{
		Code:          ErrCodeInvalidCandidate,
		Message:       message,
		CandidateType: candidateType,
	}
}

func storeFailure(collection, message string, cause error) *ResolveError {
	return &ResolveError{
		Code:       ErrCodeStoreFailure,
		Message:    message,
		Collection: collection,
		Cause:      cause,
	}
}
