package idtoken

import (
	"errors"
)

var (
	ErrCannotDecode = errors.New("ID token could not be decoded")

	// signature validation
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrMissingKeyID         = errors.New("key id (kid) header is missing")
	ErrMissingPublicKey     = errors.New("missing public key")
	ErrInvalidSignature     = errors.New("invalid ID token signature")

	// claim validation
	ErrMissingIssuer             = errors.New("issuer (iss) claim is missing")
	ErrMismatchedIssuer          = errors.New("issuer (iss) claim mismatch")
	ErrMissingSubject            = errors.New("subject (sub) claim is missing")
	ErrMissingAudience           = errors.New("audience (aud) claim is missing")
	ErrMismatchedAudience        = errors.New("audience (aud) claim mismatch")
	ErrMissingExpiry             = errors.New("expiration time (exp) claim is missing")
	ErrExpired                   = errors.New("expiration time (exp) claim is in the past")
	ErrMissingIssuedAt           = errors.New("issued at (iat) claim is missing")
	ErrMissingNonce              = errors.New("nonce claim is missing")
	ErrMismatchedNonce           = errors.New("nonce claim mismatch")
	ErrMissingAuthorizedParty    = errors.New("authorized party (azp) claim is missing")
	ErrMismatchedAuthorizedParty = errors.New("authorized party (azp) claim mismatch")
	ErrMissingAuthTime           = errors.New("authentication time (auth_time) claim is missing")
	ErrAuthTimeExceeded          = errors.New("too much time has passed since the last user authentication")
	ErrMissingOrganization       = errors.New("organization (org_id) claim is missing")
	ErrMismatchedOrganization    = errors.New("organization (org_id) claim mismatch")
)
