package service

import (
	"errors"
	"strings"
)

var (
	ErrEndpointNotFound   = errors.New("endpoint not found")
	ErrAPINotFound        = errors.New("base API not found")
	ErrCallLogNotFound    = errors.New("call log not found")
	ErrAPIKeyNotFound     = errors.New("API key not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEndpoint  = errors.New("the endpoint already exists")
	ErrEndpointDisabled   = errors.New("the endpoint is disabled")
	ErrCallLimitExceeded  = errors.New("call limit exceeded")
	ErrInvalidCategory    = errors.New("invalid settings category")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user with this email already exists")
	ErrUserInactive       = errors.New("user account is inactive")
)

// ValidationError lists every rule a request broke
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Reports whether err is, or wraps, a validation error
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
