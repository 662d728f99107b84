package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/idkit/idkit/idtoken"
)

const (
	tokenEndpoint  = "/oauth/token"
	revokeEndpoint = "/oauth/revoke"
	jwksEndpoint   = "/.well-known/jwks.json"

	// nonceRequiredErrorCode is the provider's signal that a token endpoint
	// request carrying a proof-of-possession proof must be retried with a
	// server-issued nonce.
	nonceRequiredErrorCode = "use_dpop_nonce"
	nonceHeader            = "DPoP-Nonce"
	proofHeader            = "DPoP"
)

// ProofGenerator produces proof-of-possession proofs bound to a request.
type ProofGenerator interface {
	Proof(method, requestURL, nonce, accessToken string) (string, error)
}

// Client calls the provider's authentication APIs. It is safe for concurrent
// use.
type Client struct {
	clientID  string
	baseURL   *url.URL
	transport Transport
	logger    hclog.Logger
	proofer   ProofGenerator

	mu sync.Mutex
	// lastNonce is the most recent server-issued proof-of-possession nonce
	lastNonce string
}

// New creates a Client for the provider at the given domain. The domain may
// be a bare host ("tenant.example.com") or an https URL.
//
// Supported options: WithTransport, WithProviderCA, WithLogger,
// WithProofGenerator.
func New(domain string, clientID string, opt ...Option) (*Client, error) {
	const op = "auth.New"
	opts := getClientOpts(opt...)

	var result *multierror.Error
	if domain == "" {
		result = multierror.Append(result, fmt.Errorf("domain is empty: %w", ErrInvalidParameter))
	}
	if clientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: invalid client config: %w", op, err)
	}

	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	baseURL, err := url.Parse(domain)
	if err != nil {
		return nil, fmt.Errorf("%s: domain %s is invalid: %w", op, domain, err)
	}

	transport := opts.withTransport
	if transport == nil {
		transport, err = NewTransport(opts.withProviderCA)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Client{
		clientID:  clientID,
		baseURL:   baseURL,
		transport: transport,
		logger:    opts.withLogger,
		proofer:   opts.withProofer,
	}, nil
}

// ClientID returns the client id the Client was created with.
func (c *Client) ClientID() string { return c.clientID }

// BaseURL returns a copy of the provider's base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// CodeExchange exchanges an authorization code, together with the PKCE
// verifier that started the flow, for credentials.
func (c *Client) CodeExchange(ctx context.Context, authorizationCode, codeVerifier, redirectURI string) (*Credentials, error) {
	const op = "Client.CodeExchange"
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	if codeVerifier == "" {
		return nil, fmt.Errorf("%s: code verifier is empty: %w", op, ErrInvalidParameter)
	}
	payload := map[string]string{
		"grant_type":    "authorization_code",
		"code":          authorizationCode,
		"code_verifier": codeVerifier,
		"redirect_uri":  redirectURI,
		"client_id":     c.clientID,
	}
	resp, err := c.post(ctx, tokenEndpoint, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeCredentials(resp.Body, time.Now())
}

// RenewAuth obtains new credentials using a refresh token.
//
// Supported options: WithScope, WithParameters, WithHeaders.
func (c *Client) RenewAuth(ctx context.Context, refreshToken string, opt ...Option) (*Credentials, error) {
	const op = "Client.RenewAuth"
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	payload := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
	}
	if opts.withScope != "" {
		payload["scope"] = opts.withScope
	}
	for k, v := range opts.withParameters {
		payload[k] = v
	}
	resp, err := c.post(ctx, tokenEndpoint, payload, opts.withHeaders)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeCredentials(resp.Body, time.Now())
}

// RevokeToken revokes a refresh token server-side. An empty response body is
// a success.
//
// Supported options: WithHeaders.
func (c *Client) RevokeToken(ctx context.Context, refreshToken string, opt ...Option) error {
	const op = "Client.RevokeToken"
	if refreshToken == "" {
		return fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getRequestOpts(opt...)
	payload := map[string]string{
		"token":     refreshToken,
		"client_id": c.clientID,
	}
	if _, err := c.post(ctx, revokeEndpoint, payload, opts.withHeaders); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// JWKS fetches the provider's published signing keys.
func (c *Client) JWKS(ctx context.Context) (*idtoken.JWKS, error) {
	const op = "Client.JWKS"
	req := &Request{
		Method: http.MethodGet,
		URL:    c.endpoint(jwksEndpoint),
	}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var jwks idtoken.JWKS
	if err := json.Unmarshal(resp.Body, &jwks); err != nil {
		return nil, fmt.Errorf("%s: unable to decode jwks response: %w", op, err)
	}
	return &jwks, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

// post serializes payload as JSON and executes it against the endpoint,
// performing the bounded proof-of-possession nonce retry when applicable.
func (c *Client) post(ctx context.Context, endpoint string, payload map[string]string, extraHeaders map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to encode request payload: %w", err)
	}
	requestURL := c.endpoint(endpoint)

	build := func() (*Request, error) {
		headers := http.Header{}
		headers.Set("Content-Type", "application/json")
		for k, v := range extraHeaders {
			headers.Set(k, v)
		}
		if c.proofer != nil {
			proof, err := c.proofer.Proof(http.MethodPost, requestURL, c.nonce(), "")
			if err != nil {
				return nil, fmt.Errorf("unable to generate proof: %w", err)
			}
			headers.Set(proofHeader, proof)
		}
		return &Request{
			Method:  http.MethodPost,
			URL:     requestURL,
			Headers: headers,
			Body:    body,
		}, nil
	}

	req, err := build()
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ctx, req)
	if err == nil {
		return resp, nil
	}

	// A nonce-required answer is retried exactly once with the server-issued
	// nonce folded into a fresh proof.
	var apiErr *APIError
	if c.proofer != nil && asAPIError(err, &apiErr) && apiErr.Code == nonceRequiredErrorCode {
		if nonce := apiErr.nonce; nonce != "" {
			c.setNonce(nonce)
			retryReq, buildErr := build()
			if buildErr != nil {
				return nil, buildErr
			}
			return c.roundTrip(ctx, retryReq)
		}
	}
	return nil, err
}

// roundTrip executes the request and maps non-2xx responses to an *APIError.
func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	c.logger.Debug("request", "method", req.Method, "url", req.URL)
	resp, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("response", "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, resp.Body)
		apiErr.nonce = resp.Headers.Get(nonceHeader)
		return nil, apiErr
	}
	if nonce := resp.Headers.Get(nonceHeader); nonce != "" {
		c.setNonce(nonce)
	}
	return resp, nil
}

func (c *Client) nonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastNonce
}

func (c *Client) setNonce(nonce string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastNonce = nonce
}
