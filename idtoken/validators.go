package idtoken

import (
	"fmt"
	"strings"
	"time"

	"github.com/idkit/idkit/internal/strutils"
)

// ClaimValidator checks a single claim against the expectations of the flow
// that requested the token. Implementations are pure: they return nil when
// the claim is acceptable and a typed error otherwise.
type ClaimValidator interface {
	Validate(c *Claims) error
}

// ClaimsValidator runs a fixed, ordered set of claim validators and returns
// the first non-nil error.
type ClaimsValidator struct {
	validators []ClaimValidator
}

// NewClaimsValidator composes the given validators, preserving their order.
func NewClaimsValidator(validators ...ClaimValidator) *ClaimsValidator {
	return &ClaimsValidator{validators: validators}
}

func (v *ClaimsValidator) Validate(c *Claims) error {
	for _, cv := range v.validators {
		if err := cv.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// IssValidator checks the issuer (iss) claim equals the expected issuer,
// case-sensitively.
type IssValidator struct {
	Issuer string
}

func (v IssValidator) Validate(c *Claims) error {
	if c.Issuer == "" {
		return fmt.Errorf("issuer (iss) claim must be a string present in the ID token: %w", ErrMissingIssuer)
	}
	if c.Issuer != v.Issuer {
		return fmt.Errorf("issuer (iss) claim mismatch in the ID token; expected %q, found %q: %w", v.Issuer, c.Issuer, ErrMismatchedIssuer)
	}
	return nil
}

// SubValidator checks the subject (sub) claim is present and non-empty.
type SubValidator struct{}

func (v SubValidator) Validate(c *Claims) error {
	if c.Subject == "" {
		return fmt.Errorf("subject (sub) claim must be a string present in the ID token: %w", ErrMissingSubject)
	}
	return nil
}

// AudValidator checks the audience (aud) claim contains the expected client
// id. The aud claim may be a single string or an array of strings.
type AudValidator struct {
	Audience string
}

func (v AudValidator) Validate(c *Claims) error {
	if len(c.Audience) == 0 {
		return fmt.Errorf("audience (aud) claim must be a string or array of strings present in the ID token: %w", ErrMissingAudience)
	}
	if !strutils.StrListContains(c.Audience, v.Audience) {
		if len(c.Audience) == 1 {
			return fmt.Errorf("audience (aud) claim mismatch in the ID token; expected %q but found %q: %w", v.Audience, c.Audience[0], ErrMismatchedAudience)
		}
		return fmt.Errorf("audience (aud) claim mismatch in the ID token; expected %q but was not one of (%s): %w", v.Audience, strings.Join(c.Audience, ", "), ErrMismatchedAudience)
	}
	return nil
}

// ExpValidator checks the expiration time (exp) claim, allowing for the
// configured clock-skew leeway. A zero Now uses the wall clock.
type ExpValidator struct {
	Leeway time.Duration
	Now    func() time.Time
}

func (v ExpValidator) Validate(c *Claims) error {
	if c.Expiry == nil {
		return fmt.Errorf("expiration time (exp) claim must be a number present in the ID token: %w", ErrMissingExpiry)
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	baseTime := now()
	expiry := c.Expiry.Time().Add(v.Leeway)
	if !expiry.After(baseTime) {
		return fmt.Errorf("expiration time (exp) claim error in the ID token; current time (%d) is after expiration time (%d): %w", baseTime.Unix(), expiry.Unix(), ErrExpired)
	}
	return nil
}

// IatValidator checks the issued at (iat) claim is present. No value check is
// performed beyond presence.
type IatValidator struct{}

func (v IatValidator) Validate(c *Claims) error {
	if c.IssuedAt == nil {
		return fmt.Errorf("issued at (iat) claim must be a number present in the ID token: %w", ErrMissingIssuedAt)
	}
	return nil
}

// NonceValidator checks the nonce claim matches the nonce sent in the
// authorize request. It only belongs in the active set when a nonce was
// requested.
type NonceValidator struct {
	Nonce string
}

func (v NonceValidator) Validate(c *Claims) error {
	if c.Nonce == nil {
		return fmt.Errorf("nonce claim must be a string present in the ID token: %w", ErrMissingNonce)
	}
	if *c.Nonce != v.Nonce {
		return fmt.Errorf("nonce claim mismatch in the ID token; expected %q, found %q: %w", v.Nonce, *c.Nonce, ErrMismatchedNonce)
	}
	return nil
}

// AzpValidator checks the authorized party (azp) claim equals the expected
// client id. It only belongs in the active set when the audience claim has
// more than one value.
type AzpValidator struct {
	AuthorizedParty string
}

func (v AzpValidator) Validate(c *Claims) error {
	if c.AuthorizedParty == nil {
		return fmt.Errorf("authorized party (azp) claim must be a string present in the ID token when audience (aud) claim has multiple values: %w", ErrMissingAuthorizedParty)
	}
	if *c.AuthorizedParty != v.AuthorizedParty {
		return fmt.Errorf("authorized party (azp) claim mismatch in the ID token; expected %q, found %q: %w", v.AuthorizedParty, *c.AuthorizedParty, ErrMismatchedAuthorizedParty)
	}
	return nil
}

// AuthTimeValidator checks the authentication time (auth_time) claim against
// the requested max_age, allowing for the configured leeway. It only belongs
// in the active set when max_age was requested.
type AuthTimeValidator struct {
	Leeway time.Duration
	MaxAge time.Duration
	Now    func() time.Time
}

func (v AuthTimeValidator) Validate(c *Claims) error {
	if c.AuthTime == nil {
		return fmt.Errorf("authentication time (auth_time) claim must be a number present in the ID token when max_age is specified: %w", ErrMissingAuthTime)
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	baseTime := now()
	lastAuth := c.AuthTime.Time().Add(v.MaxAge).Add(v.Leeway)
	if baseTime.After(lastAuth) {
		return fmt.Errorf("authentication time (auth_time) claim in the ID token indicates that too much time has passed since the last user authentication; current time (%d) is after last auth time (%d): %w", baseTime.Unix(), lastAuth.Unix(), ErrAuthTimeExceeded)
	}
	return nil
}

// OrgValidator checks the organization (org_id) claim matches the requested
// organization. It only belongs in the active set when an organization was
// requested.
type OrgValidator struct {
	Organization string
}

func (v OrgValidator) Validate(c *Claims) error {
	if c.Organization == nil {
		return fmt.Errorf("organization (org_id) claim must be a string present in the ID token: %w", ErrMissingOrganization)
	}
	if *c.Organization != v.Organization {
		return fmt.Errorf("organization (org_id) claim mismatch in the ID token; expected %q, found %q: %w", v.Organization, *c.Organization, ErrMismatchedOrganization)
	}
	return nil
}
