// Package services implements the client core: one service per panel of the
// application, sharing a single authentication context.
//
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing status codes is performed by the handler layer.
// Backend failures are passed through unchanged and match the sentinels of
// package api (ErrUnauthorized, ErrRejected, ErrConflict, ErrNetwork).
package services

import (
	"errors"
	"fmt"
)

// Error classes.
var (
	// ErrValidation is the parent of every local precondition failure. No
	// network call is issued when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthenticated is returned by operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the signed-in user lacks the admin role.
	ErrForbidden = errors.New("admin role required")

	// ErrBusy is returned when the same single-flight operation is already in
	// progress (chat send, upload submit).
	ErrBusy = errors.New("operation already in progress")

	// ErrAuth wraps every failed credential exchange. The wrapped cause keeps
	// the backend message.
	ErrAuth = errors.New("authentication failed")

	// ErrConflict wraps a registration the backend refused.
	ErrConflict = errors.New("registration rejected")

	// ErrStale is returned when a result arrived for a session, visit or
	// sign-in that is no longer current and was therefore dropped.
	ErrStale = errors.New("result superseded")

	// ErrConfirmationNotFound is returned for an unknown or already used
	// confirmation id.
	ErrConfirmationNotFound = errors.New("confirmation not found")
)

// Validation failures.
var (
	ErrMissingCredentials  = fmt.Errorf("%w: username and password are required", ErrValidation)
	ErrMissingRegistration = fmt.Errorf("%w: username, email and password are required", ErrValidation)
	ErrEmptyToken          = fmt.Errorf("%w: credential token is required", ErrValidation)
	ErrEmptySelection      = fmt.Errorf("%w: select at least one document", ErrValidation)
	ErrNotSelectable       = fmt.Errorf("%w: document is unknown or not indexed yet", ErrValidation)
	ErrFileIndex           = fmt.Errorf("%w: no pending file at that position", ErrValidation)
	ErrSuggestionIndex     = fmt.Errorf("%w: no suggested question at that position", ErrValidation)
	ErrUnknownPanel        = fmt.Errorf("%w: unknown panel", ErrValidation)
	ErrUnknownTab          = fmt.Errorf("%w: unknown admin tab", ErrValidation)
	ErrSelfDelete          = fmt.Errorf("%w: you cannot delete your own account", ErrValidation)
	ErrEmptyTarget         = fmt.Errorf("%w: nothing to delete", ErrValidation)
)

// classified tags err with kind while keeping err's own message.
type classified struct {
	kind error
	err  error
}

func (c *classified) Error() string   { return c.err.Error() }
func (c *classified) Unwrap() []error { return []error{c.kind, c.err} }

func classify(kind, err error) error {
	if err == nil {
		return nil
	}
	return &classified{kind: kind, err: err}
}
