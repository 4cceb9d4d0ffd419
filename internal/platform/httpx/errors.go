// Package httpx provides HTTP request decoding and response utilities.
package httpx

import "errors"

// Transport-level failures. Domain errors are mapped by their owning package.
var (
	// ErrValidation marks a request that could not be decoded or failed tag validation.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a request without a usable actor.
	ErrUnauthorized = errors.New("unauthorized")
)
