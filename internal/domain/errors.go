package domain

import "errors"

// Sentinel errors for the domain layer. API handlers map these to HTTP
// statuses; services wrap them with call-site context.
var (
	ErrNotFound         = errors.New("domain: not found")
	ErrValidation       = errors.New("domain: validation failed")
	ErrConflict         = errors.New("domain: conflict")
	ErrPermissionDenied = errors.New("domain: permission denied")
	ErrRateLimited      = errors.New("domain: rate limited")
	ErrExecutionFailed  = errors.New("domain: execution failed")
	ErrStorage          = errors.New("domain: storage unavailable")
)
