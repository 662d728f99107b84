package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// RedactedToken is the redacted string for any token carried by Credentials.
const RedactedToken = "[REDACTED: token]"

// Credentials are the tokens obtained from a successful authentication or
// renewal. ExpiresAt is always an absolute instant; the provider's relative
// expires_in is converted when the response is decoded and never stored.
type Credentials struct {
	// AccessToken used to call the provider's APIs on behalf of the user.
	AccessToken string `json:"access_token"`

	// TokenType of the access token, e.g. "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresAt is the instant the access token expires.
	ExpiresAt time.Time `json:"expires_at"`

	// IDToken is a signed JWT asserting identity claims about the user.
	IDToken string `json:"id_token"`

	// RefreshToken used to obtain new credentials without re-prompting the
	// user. May be empty when the offline_access scope was not granted.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope granted with the credentials, space-separated. May be empty.
	Scope string `json:"scope,omitempty"`

	// RecoveryCode for multi-factor authentication, when one was issued.
	RecoveryCode string `json:"recovery_code,omitempty"`
}

// String redacts every token so Credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessToken: %s, TokenType: %s, ExpiresAt: %s, IDToken: %s, RefreshToken: %s, Scope: %s}",
		RedactedToken, c.TokenType, c.ExpiresAt.Format(time.RFC3339), RedactedToken, RedactedToken, c.Scope)
}

// Token converts the credentials to an *oauth2.Token for use with libraries
// built on golang.org/x/oauth2.
func (c *Credentials) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
	return t.WithExtra(map[string]interface{}{"id_token": c.IDToken})
}

// tokenResponse is the provider's wire form of a token grant, with a relative
// expires_in in seconds.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	RecoveryCode string `json:"recovery_code"`
}

func (r *tokenResponse) credentials(now time.Time) *Credentials {
	return &Credentials{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		ExpiresAt:    now.Add(time.Duration(r.ExpiresIn) * time.Second),
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		Scope:        r.Scope,
		RecoveryCode: r.RecoveryCode,
	}
}

func decodeCredentials(body []byte, now time.Time) (*Credentials, error) {
	const op = "auth.decodeCredentials"
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: unable to decode token response: %w", op, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s: access_token is missing from token response: %w", op, ErrInvalidParameter)
	}
	return resp.credentials(now), nil
}
