package idtoken

import (
	"encoding/json"
	"fmt"
	"time"

	jose "gopkg.in/square/go-jose.v2"
)

// Claims are the registered claims of an ID token that this package
// validates. Pointer fields distinguish an absent claim from a zero value.
type Claims struct {
	Issuer          string       `json:"iss"`
	Subject         string       `json:"sub"`
	Audience        audience     `json:"aud"`
	Expiry          *NumericDate `json:"exp"`
	IssuedAt        *NumericDate `json:"iat"`
	Nonce           *string      `json:"nonce"`
	AuthorizedParty *string      `json:"azp"`
	AuthTime        *NumericDate `json:"auth_time"`
	Organization    *string      `json:"org_id"`
}

// NumericDate is a JSON numeric date value, as referenced in RFC 7519.
type NumericDate float64

// Time returns the NumericDate as a time.Time.
func (n NumericDate) Time() time.Time {
	return time.Unix(int64(n), 0)
}

// audience accepts either a single JSON string or an array of strings, per
// the "aud" claim definition in the OIDC core spec.
type audience []string

func (a *audience) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*a = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("aud claim must be a string or an array of strings")
	}
	*a = many
	return nil
}

// Decode parses a compact-serialized JWT and returns its claims without
// verifying the signature. Callers that need verified claims should use
// Validator.Validate instead.
func Decode(raw string) (*Claims, error) {
	const op = "idtoken.Decode"
	jws, err := jose.ParseSigned(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrCannotDecode)
	}
	return unmarshalClaims(jws.UnsafePayloadWithoutVerification())
}

func unmarshalClaims(payload []byte) (*Claims, error) {
	const op = "idtoken.unmarshalClaims"
	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrCannotDecode)
	}
	return &c, nil
}
