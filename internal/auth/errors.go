package auth

import "errors"

var (
	// ErrInvalidCredentials indicates the supplied password does not
	// match the configured shared secret.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownAgent indicates the upstream provider does not
	// recognize the supplied agent ID.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrForbidden indicates the caller requested data scoped to an
	// agent other than the one bound to their session.
	ErrForbidden = errors.New("access denied")

	// ErrSessionExpired indicates the session exceeded the idle
	// timeout and has been destroyed.
	ErrSessionExpired = errors.New("session expired")
)
