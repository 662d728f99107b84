package idtoken

import (
	"context"
	"fmt"
	"time"

	jose "gopkg.in/square/go-jose.v2"
)

// Context carries the expectations an ID token is validated against. A fresh
// Context is constructed for every validation attempt from the parameters of
// the flow that requested the token.
type Context struct {
	// Issuer the token must have been issued by. Compared case-sensitively.
	Issuer string

	// Audience is the client id the token must be intended for.
	Audience string

	// Nonce sent in the authorize request, if any. When set, the token must
	// carry a matching nonce claim.
	Nonce string

	// Leeway is the clock-skew tolerance applied to time-based claim checks.
	Leeway time.Duration

	// MaxAge requested in the authorize request, if any. When set, the token
	// must carry an auth_time claim within the allowed window.
	MaxAge *time.Duration

	// Organization requested in the authorize request, if any. When set, the
	// token must carry a matching org_id claim.
	Organization string
}

// Validator verifies an ID token's signature and claims in one pass. The
// signature is checked first; claim validators then run in a fixed order and
// the first failure short-circuits the rest.
type Validator struct {
	signature *SignatureValidator

	// now is settable for testing the time-based claim checks
	now func() time.Time
}

// NewValidator creates a Validator which verifies signatures against keys
// from the given KeyFetcher.
func NewValidator(keys KeyFetcher) (*Validator, error) {
	const op = "idtoken.NewValidator"
	sv, err := NewSignatureValidator(keys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Validator{signature: sv}, nil
}

// Validate verifies the raw ID token against vc. It returns nil only when the
// signature verifies and every applicable claim check passes.
func (v *Validator) Validate(ctx context.Context, rawIDToken string, vc Context) error {
	const op = "Validator.Validate"
	if rawIDToken == "" {
		return fmt.Errorf("%s: %w", op, ErrCannotDecode)
	}
	jws, err := jose.ParseSigned(rawIDToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrCannotDecode)
	}

	payload, err := v.signature.Validate(ctx, jws)
	if err != nil {
		return err
	}
	claims, err := unmarshalClaims(payload)
	if err != nil {
		return err
	}

	return v.claimsValidator(claims, vc).Validate(claims)
}

// claimsValidator assembles the active validator set for the given claims and
// context. Conditional validators join the set only when their preconditions
// hold: a nonce was requested, the audience is multi-valued, max_age was
// requested, an organization was requested.
func (v *Validator) claimsValidator(claims *Claims, vc Context) *ClaimsValidator {
	validators := []ClaimValidator{
		IssValidator{Issuer: vc.Issuer},
		SubValidator{},
		AudValidator{Audience: vc.Audience},
		ExpValidator{Leeway: vc.Leeway, Now: v.now},
		IatValidator{},
	}
	if vc.Nonce != "" {
		validators = append(validators, NonceValidator{Nonce: vc.Nonce})
	}
	if len(claims.Audience) > 1 {
		validators = append(validators, AzpValidator{AuthorizedParty: vc.Audience})
	}
	if vc.MaxAge != nil {
		validators = append(validators, AuthTimeValidator{Leeway: vc.Leeway, MaxAge: *vc.MaxAge, Now: v.now})
	}
	if vc.Organization != "" {
		validators = append(validators, OrgValidator{Organization: vc.Organization})
	}
	return NewClaimsValidator(validators...)
}
