package webauth

import (
	"errors"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrUnsupportedChallengeMethod = errors.New("unsupported challenge method")

	// ErrNoBundleIdentifier is a configuration error: without a bundle
	// identifier no default redirect URL can be derived.
	ErrNoBundleIdentifier = errors.New("unable to determine the bundle identifier")

	// ErrInvalidInvitationURL is returned when an invitation URL is missing
	// its organization or invitation query parameters.
	ErrInvalidInvitationURL = errors.New("invalid invitation URL")

	// ErrNoAuthorizationCode is returned when a callback URL carries no
	// authorization code.
	ErrNoAuthorizationCode = errors.New("no authorization code found")

	// ErrPKCENotAllowed signals a provider misconfiguration: the token
	// endpoint rejected the PKCE exchange as unauthorized.
	ErrPKCENotAllowed = errors.New("unable to complete authentication with PKCE; PKCE support may not be enabled for this application")

	// ErrIDTokenValidationFailed wraps any ID-token validation failure during
	// the code exchange; credentials are never returned unvalidated.
	ErrIDTokenValidationFailed = errors.New("ID token validation failed")

	// ErrAuthenticationFailed is returned when the provider redirects back
	// with an error parameter instead of an authorization code.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUserCancelled is delivered to a transaction's completion exactly
	// once when the flow is cancelled or superseded.
	ErrUserCancelled = errors.New("user cancelled web authentication")

	// ErrTransactionActive is returned when a new browser-delegated operation
	// is requested while another is in flight.
	ErrTransactionActive = errors.New("a web authentication transaction is already active")
)
