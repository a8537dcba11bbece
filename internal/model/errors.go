package model

import "errors"

// Sentinel errors shared by the store and photo packages. Check with
// errors.Is; the API layer maps them to HTTP status codes.
var (
	// ErrNotFound indicates the requested item or photo does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a request violates a domain constraint
	// (empty name on create, no fields on update, non-positive id).
	ErrInvalidInput = errors.New("invalid input")
)
