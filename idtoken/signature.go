package idtoken

import (
	"context"
	"fmt"

	jose "gopkg.in/square/go-jose.v2"
)

// RS256 is the only signing algorithm supported for ID tokens.
const RS256 = string(jose.RS256)

// SignatureValidator verifies a token's signature against the provider's
// published keys. Key lookup failures are reported as a missing public key;
// the validator deliberately does not distinguish "could not fetch the JWKS"
// from "the JWKS has no such key".
type SignatureValidator struct {
	keys KeyFetcher
}

// NewSignatureValidator creates a SignatureValidator which fetches keys via
// the given KeyFetcher.
func NewSignatureValidator(keys KeyFetcher) (*SignatureValidator, error) {
	const op = "idtoken.NewSignatureValidator"
	if keys == nil {
		return nil, fmt.Errorf("%s: key fetcher is nil", op)
	}
	return &SignatureValidator{keys: keys}, nil
}

// Validate checks the token's declared algorithm and key id, fetches the
// provider's JWKS, and cryptographically verifies the signature. On success
// it returns the verified payload.
func (v *SignatureValidator) Validate(ctx context.Context, jws *jose.JSONWebSignature) ([]byte, error) {
	const op = "SignatureValidator.Validate"
	if len(jws.Signatures) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrCannotDecode)
	}
	header := jws.Signatures[0].Header
	if header.Algorithm != RS256 {
		return nil, fmt.Errorf("%s: signature algorithm %q is not supported, expected the ID token to be signed with %q: %w", op, header.Algorithm, RS256, ErrUnsupportedAlgorithm)
	}
	if header.KeyID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingKeyID)
	}

	jwks, err := v.keys.JWKS(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: could not find a public key for key id (kid) %q: %w", op, header.KeyID, ErrMissingPublicKey)
	}
	key, ok := jwks.Key(header.KeyID)
	if !ok {
		return nil, fmt.Errorf("%s: could not find a public key for key id (kid) %q: %w", op, header.KeyID, ErrMissingPublicKey)
	}

	payload, err := jws.Verify(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}
	return payload, nil
}
