package webauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/idkit/idkit/auth"
	"github.com/idkit/idkit/idtoken"
)

// Grant turns the parameters of a provider callback into credentials. It also
// contributes the authorize-URL parameters that set the grant up (e.g. the
// PKCE challenge).
type Grant interface {
	// Defaults are the authorize-URL parameters the grant requires.
	Defaults() map[string]string

	// Credentials exchanges callback parameters for validated credentials.
	Credentials(ctx context.Context, values map[string]string) (*auth.Credentials, error)

	// Values extracts the callback parameters from a callback URL.
	Values(u *url.URL) map[string]string
}

// PKCEGrant implements the authorization-code grant with PKCE. The verifier
// is held in memory for the duration of one flow and released with the grant.
type PKCEGrant struct {
	client       *auth.Client
	validator    *idtoken.Validator
	redirectURL  *url.URL
	verifier     *CodeVerifier
	defaults     map[string]string
	issuer       string
	leeway       time.Duration
	maxAge       *time.Duration
	nonce        string
	organization string
}

var _ Grant = (*PKCEGrant)(nil)

// pkceGrantConfig collects the per-flow validation parameters for a
// PKCEGrant.
type pkceGrantConfig struct {
	issuer       string
	leeway       time.Duration
	maxAge       *time.Duration
	nonce        string
	organization string
}

// newPKCEGrant creates a grant for one flow. The client doubles as the key
// source for ID-token signature validation.
func newPKCEGrant(client *auth.Client, verifier *CodeVerifier, redirectURL *url.URL, cfg pkceGrantConfig) (*PKCEGrant, error) {
	const op = "webauth.newPKCEGrant"
	if client == nil {
		return nil, fmt.Errorf("%s: client is nil: %w", op, ErrNilParameter)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%s: code verifier is nil: %w", op, ErrNilParameter)
	}
	validator, err := idtoken.NewValidator(client)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defaults := map[string]string{
		"code_challenge":        verifier.Challenge(),
		"code_challenge_method": string(verifier.Method()),
	}
	if cfg.nonce != "" {
		defaults["nonce"] = cfg.nonce
	}
	return &PKCEGrant{
		client:       client,
		validator:    validator,
		redirectURL:  redirectURL,
		verifier:     verifier,
		defaults:     defaults,
		issuer:       cfg.issuer,
		leeway:       cfg.leeway,
		maxAge:       cfg.maxAge,
		nonce:        cfg.nonce,
		organization: cfg.organization,
	}, nil
}

func (g *PKCEGrant) Defaults() map[string]string { return g.defaults }

// Credentials exchanges the code in values for tokens and validates the
// returned ID token. Validation failure fails the whole exchange.
func (g *PKCEGrant) Credentials(ctx context.Context, values map[string]string) (*auth.Credentials, error) {
	const op = "PKCEGrant.Credentials"
	code, ok := values["code"]
	if !ok || code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoAuthorizationCode)
	}

	creds, err := g.client.CodeExchange(ctx, code, g.verifier.Verifier(), g.redirectURL.String())
	if err != nil {
		var apiErr *auth.APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			return nil, fmt.Errorf("%s: %w", op, ErrPKCENotAllowed)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	vc := idtoken.Context{
		Issuer:       g.issuer,
		Audience:     g.client.ClientID(),
		Nonce:        g.nonce,
		Leeway:       g.leeway,
		MaxAge:       g.maxAge,
		Organization: g.organization,
	}
	if err := g.validator.Validate(ctx, creds.IDToken, vc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIDTokenValidationFailed, err)
	}
	return creds, nil
}

// Values merges the URL's fragment key/values and query key/values into one
// map. The fragment is parsed first; query values overwrite.
func (g *PKCEGrant) Values(u *url.URL) map[string]string {
	return valuesFromURL(u)
}

func valuesFromURL(u *url.URL) map[string]string {
	items := map[string]string{}
	for _, item := range strings.Split(u.Fragment, "&") {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		items[parts[0]] = parts[1]
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			items[k] = vs[0]
		}
	}
	return items
}
