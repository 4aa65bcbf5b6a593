package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrDeleted    = errors.New("notification is deleted")
)

// ValidationError wraps ErrValidation with field context so handlers can
// report which part of the input was malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderErrorKind classifies push-gateway failures. InvalidToken
// triggers token deactivation; Transient and Fatal are surfaced to the
// caller without inline retry.
type ProviderErrorKind string

const (
	ProviderInvalidToken ProviderErrorKind = "invalid_token"
	ProviderTransient    ProviderErrorKind = "transient"
	ProviderFatal        ProviderErrorKind = "fatal"
)

type ProviderError struct {
	Kind    ProviderErrorKind
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error (%s/%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// IsInvalidToken reports whether err is a provider rejection that should
// deactivate the device token.
func IsInvalidToken(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ProviderInvalidToken
}
