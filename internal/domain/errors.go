package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("conflict")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrMalformedPayload marks queue payloads that can never be processed.
	ErrMalformedPayload = errors.New("malformed payload")
	ErrPublishFailed    = errors.New("publish failed")
)
