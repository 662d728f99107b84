package webauth

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/idkit/idkit/auth"
	"github.com/idkit/idkit/sdk/id"
)

const (
	// DefaultScope is requested when no scope option is provided.
	DefaultScope = "openid profile email"

	// DefaultLeeway is the default clock-skew tolerance for ID-token
	// validation.
	DefaultLeeway = time.Minute

	authorizeEndpoint = "/authorize"
	logoutEndpoint    = "/v2/logout"
	responseTypeCode  = "code"
)

// WebAuth performs browser-delegated authentication against the provider:
// it builds the PKCE challenge and authorize URL, launches the user agent,
// and turns the provider's redirect callback into validated credentials.
type WebAuth struct {
	client  *auth.Client
	store   *TransactionStore
	barrier Barrier
	agent   UserAgent
	logger  hclog.Logger

	issuer        string
	scope         string
	audience      string
	connection    string
	state         string
	nonce         string
	organization  string
	invitationURL *url.URL
	leeway        time.Duration
	maxAge        *time.Duration
	parameters    map[string]string
	redirectURL   *url.URL
	bundleID      string
	universalLink bool
}

// New creates a WebAuth for the given API client.
//
// Supported options: WithScope, WithAudience, WithConnection, WithState,
// WithNonce, WithOrganization, WithInvitationURL, WithLeeway, WithMaxAge,
// WithParameters, WithRedirectURL, WithBundleID, WithUniversalLink,
// WithIssuer, WithUserAgent, WithLogger, WithTransactionStore, WithBarrier.
func New(client *auth.Client, opt ...Option) (*WebAuth, error) {
	const op = "webauth.New"
	if client == nil {
		return nil, fmt.Errorf("%s: client is nil: %w", op, ErrNilParameter)
	}
	opts := getWebAuthOpts(opt...)

	issuer := opts.withIssuer
	if issuer == "" {
		issuer = strings.TrimSuffix(client.BaseURL().String(), "/") + "/"
	}
	store := opts.withStore
	if store == nil {
		store = NewTransactionStore()
	}
	barrier := opts.withBarrier
	if barrier == nil {
		barrier = NewBarrier()
	}

	return &WebAuth{
		client:        client,
		store:         store,
		barrier:       barrier,
		agent:         opts.withUserAgent,
		logger:        opts.withLogger,
		issuer:        issuer,
		scope:         opts.withScope,
		audience:      opts.withAudience,
		connection:    opts.withConnection,
		state:         opts.withState,
		nonce:         opts.withNonce,
		organization:  opts.withOrganization,
		invitationURL: opts.withInvitationURL,
		leeway:        opts.withLeeway,
		maxAge:        opts.withMaxAge,
		parameters:    opts.withParameters,
		redirectURL:   opts.withRedirectURL,
		bundleID:      opts.withBundleID,
		universalLink: opts.withUniversalLink,
	}, nil
}

// Resume routes a provider callback URL to the pending transaction. It
// returns false when no pending transaction matches the URL.
func (w *WebAuth) Resume(u *url.URL) bool {
	return w.store.Resume(u)
}

// Start runs one browser-delegated login: it raises the barrier, registers a
// transaction, presents the authorize URL through the user agent, and blocks
// until a matching callback resolves the transaction or ctx is cancelled.
// Cancelling ctx cancels the transaction and returns ErrUserCancelled.
func (w *WebAuth) Start(ctx context.Context) (*auth.Credentials, error) {
	const op = "WebAuth.Start"
	if w.agent == nil {
		return nil, fmt.Errorf("%s: user agent is nil: %w", op, ErrNilParameter)
	}
	redirectURL, err := w.resolveRedirectURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !w.barrier.Raise() {
		return nil, fmt.Errorf("%s: %w", op, ErrTransactionActive)
	}
	fail := func(err error) (*auth.Credentials, error) {
		w.barrier.Lower()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verifier, err := NewCodeVerifier()
	if err != nil {
		return fail(err)
	}
	state := w.state
	if state == "" {
		if state, err = id.New("st"); err != nil {
			return fail(err)
		}
	}

	organization := w.organization
	var invitation string
	if w.invitationURL != nil {
		if organization, invitation, err = invitationParams(w.invitationURL); err != nil {
			return fail(err)
		}
	}

	grant, err := newPKCEGrant(w.client, verifier, redirectURL, pkceGrantConfig{
		issuer:       w.issuer,
		leeway:       w.leeway,
		maxAge:       w.maxAge,
		nonce:        w.nonce,
		organization: organization,
	})
	if err != nil {
		return fail(err)
	}

	authorizeURL := w.buildAuthorizeURL(redirectURL, grant.Defaults(), state, organization, invitation)

	type result struct {
		creds *auth.Credentials
		err   error
	}
	done := make(chan result, 1)
	transaction, err := NewLoginTransaction(ctx, redirectURL, state, grant, w.agent, w.logger, func(creds *auth.Credentials, err error) {
		done <- result{creds: creds, err: err}
	})
	if err != nil {
		return fail(err)
	}

	w.store.Store(transaction)
	if err := w.agent.Start(authorizeURL); err != nil {
		w.store.Clear()
		return fail(fmt.Errorf("unable to start user agent: %w", err))
	}
	w.logger.Trace("started web authentication", "host", authorizeURL.Host)

	select {
	case <-ctx.Done():
		w.store.Cancel()
		r := <-done
		w.barrier.Lower()
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", op, r.err)
		}
		return r.creds, nil
	case r := <-done:
		w.barrier.Lower()
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", op, r.err)
		}
		return r.creds, nil
	}
}

// ClearSession runs a browser-delegated logout against the provider's logout
// endpoint, removing the provider session cookie. When federated is true the
// upstream identity provider session is cleared as well.
func (w *WebAuth) ClearSession(ctx context.Context, federated bool) error {
	const op = "WebAuth.ClearSession"
	if w.agent == nil {
		return fmt.Errorf("%s: user agent is nil: %w", op, ErrNilParameter)
	}
	redirectURL, err := w.resolveRedirectURL()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logoutURL, err := w.LogoutURL(federated)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !w.barrier.Raise() {
		return fmt.Errorf("%s: %w", op, ErrTransactionActive)
	}

	done := make(chan error, 1)
	transaction, err := NewLogoutTransaction(ctx, redirectURL, w.agent, w.logger, func(_ *auth.Credentials, err error) {
		done <- err
	})
	if err != nil {
		w.barrier.Lower()
		return fmt.Errorf("%s: %w", op, err)
	}

	w.store.Store(transaction)
	if err := w.agent.Start(logoutURL); err != nil {
		w.store.Clear()
		w.barrier.Lower()
		return fmt.Errorf("%s: unable to start user agent: %w", op, err)
	}

	select {
	case <-ctx.Done():
		w.store.Cancel()
		err := <-done
		w.barrier.Lower()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case err := <-done:
		w.barrier.Lower()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

// LogoutURL builds the provider logout URL with the returnTo and client_id
// parameters, optionally flagged federated.
func (w *WebAuth) LogoutURL(federated bool) (*url.URL, error) {
	const op = "WebAuth.LogoutURL"
	redirectURL, err := w.resolveRedirectURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u := w.client.BaseURL()
	u.Path = strings.TrimSuffix(u.Path, "/") + logoutEndpoint

	q := url.Values{}
	q.Set("returnTo", redirectURL.String())
	q.Set("client_id", w.client.ClientID())
	u.RawQuery = q.Encode()
	if federated {
		u.RawQuery = "federated&" + u.RawQuery
	}
	return u, nil
}

// resolveRedirectURL returns the configured redirect URL or derives the
// default {scheme}://{domain}{path}/{platform}/{bundle-id}/callback shape.
func (w *WebAuth) resolveRedirectURL() (*url.URL, error) {
	if w.redirectURL != nil {
		u := *w.redirectURL
		return &u, nil
	}
	if w.bundleID == "" {
		return nil, ErrNoBundleIdentifier
	}
	u := w.client.BaseURL()
	if w.universalLink {
		u.Scheme = "https"
	} else {
		u.Scheme = w.bundleID
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + platformName() + "/" + w.bundleID + "/callback"
	return u, nil
}

func platformName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}

// buildAuthorizeURL assembles the authorize URL. The grant's defaults seed
// the parameters; caller-provided parameters override computed entries; the
// openid scope is always forced in last.
func (w *WebAuth) buildAuthorizeURL(redirectURL *url.URL, defaults map[string]string, state, organization, invitation string) *url.URL {
	u := w.client.BaseURL()
	u.Path = strings.TrimSuffix(u.Path, "/") + authorizeEndpoint

	entries := map[string]string{}
	for k, v := range defaults {
		entries[k] = v
	}
	entries["scope"] = w.scope
	entries["client_id"] = w.client.ClientID()
	entries["response_type"] = responseTypeCode
	entries["redirect_uri"] = redirectURL.String()
	entries["state"] = state
	if w.nonce != "" {
		entries["nonce"] = w.nonce
	}
	if w.audience != "" {
		entries["audience"] = w.audience
	}
	if w.connection != "" {
		entries["connection"] = w.connection
	}
	if organization != "" {
		entries["organization"] = organization
	}
	if invitation != "" {
		entries["invitation"] = invitation
	}
	if w.maxAge != nil {
		entries["max_age"] = strconv.FormatInt(int64(w.maxAge.Seconds()), 10)
	}
	for k, v := range w.parameters {
		entries[k] = v
	}
	entries["scope"] = includeRequiredScope(entries["scope"])

	q := url.Values{}
	for k, v := range entries {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u
}

// includeRequiredScope prefixes the openid scope when it is not already
// requested.
func includeRequiredScope(scope string) string {
	for _, s := range strings.Fields(scope) {
		if strings.EqualFold(s, "openid") {
			return scope
		}
	}
	if scope == "" {
		return "openid"
	}
	return "openid " + scope
}

// invitationParams extracts the organization and invitation parameters from
// an invitation URL.
func invitationParams(invitationURL *url.URL) (organization string, invitation string, err error) {
	q := invitationURL.Query()
	organization = q.Get("organization")
	invitation = q.Get("invitation")
	if organization == "" || invitation == "" {
		return "", "", fmt.Errorf("%q: %w", invitationURL.String(), ErrInvalidInvitationURL)
	}
	return organization, invitation, nil
}
