// Package dpop generates proof-of-possession proofs (RFC 9449) binding token
// endpoint requests to a client-held key. The key lives only in memory; OS
// key stores are a collaborator concern, not handled here.
package dpop

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-uuid"
	jose "gopkg.in/square/go-jose.v2"
)

// proofType is the JOSE typ header value for a proof JWT.
const proofType = "dpop+jwt"

// Proofer signs proofs with an in-memory ES256 key generated at construction.
type Proofer struct {
	key    *ecdsa.PrivateKey
	signer jose.Signer

	// now is settable for testing
	now func() time.Time
}

// NewProofer generates a fresh ES256 key and returns a Proofer bound to it.
func NewProofer() (*Proofer, error) {
	const op = "dpop.NewProofer"
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate key: %w", op, err)
	}

	opts := (&jose.SignerOptions{EmbedJWK: true}).WithType(proofType)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: key}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create signer: %w", op, err)
	}
	return &Proofer{key: key, signer: signer, now: time.Now}, nil
}

// PublicKey returns the public half of the proofer's key as a JWK.
func (p *Proofer) PublicKey() jose.JSONWebKey {
	return jose.JSONWebKey{Key: &p.key.PublicKey, Algorithm: string(jose.ES256), Use: "sig"}
}

// Proof produces a serialized proof for the given request. The nonce is the
// most recent server-issued value, empty when the server has not issued one
// yet. When accessToken is non-empty its hash is bound into the proof.
func (p *Proofer) Proof(method, requestURL, nonce, accessToken string) (string, error) {
	const op = "Proofer.Proof"
	htu, err := normalizeURL(requestURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	jti, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate jti: %w", op, err)
	}

	claims := map[string]interface{}{
		"jti": jti,
		"htm": method,
		"htu": htu,
		"iat": p.now().Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	if accessToken != "" {
		hash := sha256.Sum256([]byte(accessToken))
		claims["ath"] = base64.RawURLEncoding.EncodeToString(hash[:])
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("%s: unable to encode claims: %w", op, err)
	}
	jws, err := p.signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("%s: unable to sign proof: %w", op, err)
	}
	serialized, err := jws.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to serialize proof: %w", op, err)
	}
	return serialized, nil
}

// normalizeURL strips the query and fragment, per the htu claim definition.
func normalizeURL(requestURL string) (string, error) {
	u, err := url.Parse(requestURL)
	if err != nil {
		return "", fmt.Errorf("invalid request url: %w", err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
