package webauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethod represents a PKCE code challenge method.
type ChallengeMethod string

// S256 is the only supported challenge method: the challenge is the
// base64url-encoded SHA-256 digest of the verifier.
const S256 ChallengeMethod = "S256"

// verifierLen is the length of the base64url encoding of 32 random bytes.
const verifierLen = 43

// CodeVerifier is a PKCE verifier/challenge pair. The verifier is the secret
// binding the authorization code to the client that started the flow: it must
// never be transmitted until the token-exchange step, and never logged.
type CodeVerifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// NewCodeVerifier generates a verifier from 32 cryptographically-random
// bytes. A failing platform random source is a fatal flow-start error.
func NewCodeVerifier() (*CodeVerifier, error) {
	const op = "webauth.NewCodeVerifier"
	data := make([]byte, 32)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("%s: unable to create verifier data: %w", op, err)
	}
	v := &CodeVerifier{
		verifier: base64.RawURLEncoding.EncodeToString(data),
		method:   S256,
	}
	challenge, err := CreateCodeChallenge(S256, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v.challenge = challenge
	return v, nil
}

// Verifier returns the verifier. Callers must only send it to the token
// endpoint over TLS.
func (v *CodeVerifier) Verifier() string { return v.verifier }

// Challenge returns the challenge derived from the verifier.
func (v *CodeVerifier) Challenge() string { return v.challenge }

// Method returns the challenge method.
func (v *CodeVerifier) Method() ChallengeMethod { return v.method }

// String redacts the verifier.
func (v *CodeVerifier) String() string {
	return "[REDACTED: code verifier]"
}

// CreateCodeChallenge derives a code challenge from the verifier. The
// derivation is deterministic and one-way; a challenge can never be reversed
// into its verifier.
func CreateCodeChallenge(m ChallengeMethod, v *CodeVerifier) (string, error) {
	const op = "webauth.CreateCodeChallenge"
	if m != S256 {
		return "", fmt.Errorf("%s: %q: %w", op, m, ErrUnsupportedChallengeMethod)
	}
	sum := sha256.Sum256([]byte(v.verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
