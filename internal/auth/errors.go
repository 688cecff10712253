// Package auth provides the shared error taxonomy and session token
// verification for the authorization core.
package auth

import "errors"

var (
	// ErrAuthenticationRequired is returned when a request carries
	// neither a session token nor an API key
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrInvalidCredential is the undifferentiated external error for
	// any API key that fails to resolve to an active, unexpired record
	// owned by an active user
	ErrInvalidCredential = errors.New("invalid API key")

	// ErrInsufficientPermissions is returned when a recognized
	// principal fails a role or scope requirement
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrEscalationDenied is returned when an issuer attempts to mint
	// or update an API key beyond their own held scopes
	ErrEscalationDenied = errors.New("requested scopes exceed issuer permissions")

	// ErrInvalidSession is returned when a presented session token
	// fails verification
	ErrInvalidSession = errors.New("invalid session token")
)
