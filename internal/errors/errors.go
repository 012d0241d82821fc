package errors

import (
	"errors"
	"fmt"
)

// Common error types for the login gateway
var (
	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrMalformedResponse  = errors.New("malformed backend response")

	// Anti-forgery state errors
	ErrInvalidState      = errors.New("invalid state")
	ErrStateExpired      = errors.New("state expired")
	ErrStateRedeemed     = errors.New("state already redeemed")
	ErrStateKindMismatch = errors.New("state issued for a different flow")

	// Provider errors
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
	ErrProviderDiscovery     = errors.New("oauth provider discovery failed")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join is errors.Join, re-exported so callers need only this package
func Join(errs ...error) error {
	return errors.Join(errs...)
}
