package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/idkit/idkit/auth"
	"github.com/idkit/idkit/internal/strutils"
)

// DefaultStoreKey is the storage key the credential record is kept under
// when no WithStoreKey option is provided.
const DefaultStoreKey = "credentials"

// API is the slice of the authentication client the Manager needs. It is
// satisfied by *auth.Client.
type API interface {
	RenewAuth(ctx context.Context, refreshToken string, opt ...auth.Option) (*auth.Credentials, error)
	RevokeToken(ctx context.Context, refreshToken string, opt ...auth.Option) error
}

// Manager persists one credential record and hands out credentials from it,
// renewing them transparently when they are expired, too close to expiry, or
// granted for a different scope than requested.
type Manager struct {
	api        API
	storage    Storage
	storeKey   string
	gate       Gate
	serializer *Serializer
	logger     hclog.Logger

	// now is settable for testing expiry decisions
	now func() time.Time
}

// NewManager creates a Manager using the given API client and storage.
//
// Supported options: WithStoreKey, WithGate, WithSerializer, WithLogger.
func NewManager(api API, storage Storage, opt ...Option) (*Manager, error) {
	const op = "credentials.NewManager"
	if api == nil {
		return nil, fmt.Errorf("%s: api client is nil: %w", op, ErrNilParameter)
	}
	if storage == nil {
		return nil, fmt.Errorf("%s: storage is nil: %w", op, ErrNilParameter)
	}
	opts := getManagerOpts(opt...)
	serializer := opts.withSerializer
	if serializer == nil {
		serializer = NewSerializer()
	}
	return &Manager{
		api:        api,
		storage:    storage,
		storeKey:   opts.withStoreKey,
		gate:       opts.withGate,
		serializer: serializer,
		logger:     opts.withLogger,
		now:        time.Now,
	}, nil
}

// Store serializes and persists the credentials, replacing any prior record.
func (m *Manager) Store(creds *auth.Credentials) error {
	const op = "Manager.Store"
	if creds == nil {
		return fmt.Errorf("%s: credentials are nil: %w", op, ErrNilParameter)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreFailed, err)
	}
	if err := m.storage.Set(m.storeKey, data); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreFailed, err)
	}
	return nil
}

// Clear deletes the stored credential record. Clearing an absent record is a
// no-op.
func (m *Manager) Clear() error {
	const op = "Manager.Clear"
	if err := m.storage.Delete(m.storeKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HasValid reports whether a credential record exists, is not expired, and
// has at least minTTL of remaining lifetime.
func (m *Manager) HasValid(minTTL time.Duration) bool {
	creds, err := m.retrieve()
	if err != nil {
		return false
	}
	return !m.willExpire(creds, minTTL)
}

// Credentials returns stored credentials when they are fresh enough for the
// request, renewing them with the refresh token otherwise. The whole decision
// runs under the serializer so concurrent callers are funneled one at a
// time: a second caller's work begins only after the first caller's storage
// write completes, which matters under refresh-token rotation.
//
// Supported options: WithScope, WithMinTTL, WithParameters, WithHeaders.
func (m *Manager) Credentials(ctx context.Context, opt ...Option) (*auth.Credentials, error) {
	const op = "Manager.Credentials"
	opts := getRequestOpts(opt...)

	var creds *auth.Credentials
	err := m.serializer.Do(ctx, func(ctx context.Context) error {
		if m.gate != nil {
			if err := m.gate.Evaluate(ctx); err != nil {
				return fmt.Errorf("%w: %v", ErrBiometricsFailed, err)
			}
		}
		var err error
		creds, err = m.retrieveOrRenew(ctx, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return creds, nil
}

// Revoke revokes the stored refresh token server-side and clears local
// storage. With no stored refresh token there is nothing to revoke
// server-side: local storage is cleared and the call succeeds. When the
// server-side revocation fails, local storage is deliberately left intact and
// the error surfaced, so the caller can retry.
//
// Supported options: WithHeaders.
func (m *Manager) Revoke(ctx context.Context, opt ...Option) error {
	const op = "Manager.Revoke"
	opts := getRequestOpts(opt...)

	err := m.serializer.Do(ctx, func(ctx context.Context) error {
		creds, err := m.retrieve()
		if err != nil || creds.RefreshToken == "" {
			return m.Clear()
		}
		var apiOpts []auth.Option
		if len(opts.withHeaders) > 0 {
			apiOpts = append(apiOpts, auth.WithHeaders(opts.withHeaders))
		}
		if err := m.api.RevokeToken(ctx, creds.RefreshToken, apiOpts...); err != nil {
			return fmt.Errorf("%w: %v", ErrRevokeFailed, err)
		}
		return m.Clear()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// retrieveOrRenew is the core refresh algorithm. It must run under the
// serializer.
func (m *Manager) retrieveOrRenew(ctx context.Context, opts requestOptions) (*auth.Credentials, error) {
	stored, err := m.retrieve()
	if err != nil {
		return nil, err
	}

	// The common, cheap path: stored credentials are fresh enough and cover
	// the requested scope. No network call.
	if !m.willExpire(stored, opts.withMinTTL) && !scopeChanged(stored, opts.withScope) {
		return stored, nil
	}

	if stored.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	var apiOpts []auth.Option
	if opts.withScope != "" {
		apiOpts = append(apiOpts, auth.WithScope(opts.withScope))
	}
	if len(opts.withParameters) > 0 {
		apiOpts = append(apiOpts, auth.WithParameters(opts.withParameters))
	}
	if len(opts.withHeaders) > 0 {
		apiOpts = append(apiOpts, auth.WithHeaders(opts.withHeaders))
	}
	renewed, err := m.api.RenewAuth(ctx, stored.RefreshToken, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenewFailed, err)
	}

	// Providers that do not rotate refresh tokens omit the refresh_token
	// field; fall back to the one we already hold.
	merged := *renewed
	if merged.RefreshToken == "" {
		merged.RefreshToken = stored.RefreshToken
	}

	if m.willExpire(&merged, opts.withMinTTL) {
		lifetime := merged.ExpiresAt.Sub(m.now()).Truncate(time.Second)
		return nil, fmt.Errorf("the minTTL requested (%s) is greater than the lifetime of the renewed access token (%s): %w",
			opts.withMinTTL, lifetime, ErrLargeMinTTL)
	}

	if err := m.Store(&merged); err != nil {
		return nil, err
	}
	m.logger.Debug("renewed credentials", "expires_at", merged.ExpiresAt)
	return &merged, nil
}

func (m *Manager) retrieve() (*auth.Credentials, error) {
	data, ok := m.storage.Get(m.storeKey)
	if !ok {
		return nil, ErrNoCredentials
	}
	var creds auth.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, ErrNoCredentials
	}
	return &creds, nil
}

// willExpire reports whether the credentials are expired or will expire
// within minTTL.
func (m *Manager) willExpire(creds *auth.Credentials, minTTL time.Duration) bool {
	return !creds.ExpiresAt.After(m.now().Add(minTTL))
}

// scopeChanged reports whether the requested scope differs, as a set, from
// the granted one. An empty request keeps whatever was granted.
func scopeChanged(creds *auth.Credentials, scope string) bool {
	if scope == "" {
		return false
	}
	return !strutils.ScopeEqual(creds.Scope, scope)
}
