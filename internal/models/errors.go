package models

import "github.com/pkg/errors"

// Error taxonomy shared by storage, services and transports.
// Callers wrap these with context and match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)
