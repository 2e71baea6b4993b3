package model

import "errors"

// Sentinel errors shared across layers. Stores and clients return these
// (optionally wrapped) so the HTTP layer can translate them uniformly.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrProvider      = errors.New("provider error")
	ErrConfiguration = errors.New("configuration error")
)
