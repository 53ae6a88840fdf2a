package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrNotFound           = fmt.Errorf("not found")
	ErrRateLimited        = fmt.Errorf("rate limit exceeded")
	ErrBlankContent       = fmt.Errorf("message content is required")
	ErrMissingMessageID   = fmt.Errorf("message id is required")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// Is forwards to the standard library so callers of this package never need
// a second errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }
