package credentials

import (
	"errors"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrNoCredentials is returned when no credential record is stored.
	ErrNoCredentials = errors.New("no credentials were found in the store")

	// ErrNoRefreshToken is returned when renewal is required but the stored
	// credentials carry no refresh token. The renewal is impossible; the
	// caller must re-authenticate.
	ErrNoRefreshToken = errors.New("the stored credentials have no refresh token")

	// ErrRenewFailed wraps a failed token renewal.
	ErrRenewFailed = errors.New("credentials renewal failed")

	// ErrLargeMinTTL is a configuration error: the requested minimum TTL is
	// larger than the lifetime of the tokens the provider issues.
	ErrLargeMinTTL = errors.New("the minTTL requested is greater than the lifetime of the renewed access token")

	// ErrBiometricsFailed is returned when the configured biometric gate
	// denies access.
	ErrBiometricsFailed = errors.New("biometric authentication failed")

	// ErrRevokeFailed wraps a failed server-side refresh token revocation.
	// The local credentials are deliberately kept when revocation fails.
	ErrRevokeFailed = errors.New("refresh token revocation failed")

	// ErrStoreFailed is returned when serializing or persisting credentials
	// fails.
	ErrStoreFailed = errors.New("unable to store the credentials")
)
