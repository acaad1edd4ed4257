// Package common defines shared constants and sentinel errors used across
// the gateway layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Authentication outcomes. Both credential failures are reported to the
	// user with the same message.
	ErrNoSuchPrincipal = errors.New("no such principal")
	ErrBadCredentials  = errors.New("bad credentials")

	// Signup validation.
	ErrMissingSignupField = errors.New("all fields are required")
	ErrPasswordTooLong    = errors.New("password is too long")

	// The row matched by email is already linked to another account at the
	// same provider.
	ErrProviderAlreadyLinked = errors.New("provider already linked")

	// The session references a principal row that no longer exists.
	ErrSessionInvalid = errors.New("session invalid")

	// OAuth state token problems.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
