package generator

import "errors"

var (
	// ErrNotConfigured is returned when no model backend is configured.
	ErrNotConfigured = errors.New("generator is not configured")

	// ErrGenerationFailed is returned when the model call itself fails
	// (network error, timeout, resource exhaustion).
	ErrGenerationFailed = errors.New("generation request failed")

	// ErrInvalidResponse is returned when the model answers but the
	// response carries no usable output.
	ErrInvalidResponse = errors.New("invalid response from language model")
)
