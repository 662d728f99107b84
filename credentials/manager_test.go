package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idkit/idkit/auth"
)

type fakeAPI struct {
	mu            sync.Mutex
	renewCalls    int
	renewedTokens []string
	renewCreds    *auth.Credentials
	renewErr      error
	revokeCalls   int
	revokedTokens []string
	revokeErr     error
	renewDelay    time.Duration
}

func (a *fakeAPI) RenewAuth(ctx context.Context, refreshToken string, opt ...auth.Option) (*auth.Credentials, error) {
	a.mu.Lock()
	a.renewCalls++
	a.renewedTokens = append(a.renewedTokens, refreshToken)
	delay := a.renewDelay
	a.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if a.renewErr != nil {
		return nil, a.renewErr
	}
	creds := *a.renewCreds
	return &creds, nil
}

func (a *fakeAPI) RevokeToken(ctx context.Context, refreshToken string, opt ...auth.Option) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revokeCalls++
	a.revokedTokens = append(a.revokedTokens, refreshToken)
	return a.revokeErr
}

type failingGate struct{ err error }

func (g failingGate) Evaluate(ctx context.Context) error { return g.err }

var testNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func freshCredentials() *auth.Credentials {
	return &auth.Credentials{
		AccessToken:  "at-0",
		TokenType:    "Bearer",
		ExpiresAt:    testNow.Add(time.Hour),
		IDToken:      "idt-0",
		RefreshToken: "rt-0",
		Scope:        "openid profile",
	}
}

func expiredCredentials() *auth.Credentials {
	creds := freshCredentials()
	creds.ExpiresAt = testNow.Add(-time.Minute)
	return creds
}

func renewedCredentials() *auth.Credentials {
	return &auth.Credentials{
		AccessToken:  "at-1",
		TokenType:    "Bearer",
		ExpiresAt:    testNow.Add(24 * time.Hour),
		IDToken:      "idt-1",
		RefreshToken: "rt-1",
		Scope:        "openid profile",
	}
}

func newTestManager(t *testing.T, api *fakeAPI, opt ...Option) (*Manager, *InMemoryStorage) {
	t.Helper()
	storage := NewInMemoryStorage()
	m, err := NewManager(api, storage, opt...)
	require.NoError(t, err)
	m.now = func() time.Time { return testNow }
	return m, storage
}

func storedCredentials(t *testing.T, storage *InMemoryStorage) *auth.Credentials {
	t.Helper()
	data, ok := storage.Get(DefaultStoreKey)
	require.True(t, ok)
	var creds auth.Credentials
	require.NoError(t, json.Unmarshal(data, &creds))
	return &creds
}

func TestNewManager(t *testing.T) {
	t.Run("nil-api", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := NewManager(nil, NewInMemoryStorage())
		require.Error(err)
		assert.True(errors.Is(err, ErrNilParameter))
	})
	t.Run("nil-storage", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := NewManager(&fakeAPI{}, nil)
		require.Error(err)
		assert.True(errors.Is(err, ErrNilParameter))
	})
}

func TestManager_StoreAndClear(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	m, storage := newTestManager(t, &fakeAPI{})

	require.NoError(m.Store(freshCredentials()))
	assert.Equal("at-0", storedCredentials(t, storage).AccessToken)

	require.NoError(m.Clear())
	_, ok := storage.Get(DefaultStoreKey)
	assert.False(ok)

	// clearing twice is fine
	require.NoError(m.Clear())

	err := m.Store(nil)
	require.Error(err)
	assert.True(errors.Is(err, ErrNilParameter))
}

func TestManager_HasValid(t *testing.T) {
	m, _ := newTestManager(t, &fakeAPI{})

	t.Run("no-credentials", func(t *testing.T) {
		assert.False(t, m.HasValid(0))
	})
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, m.Store(freshCredentials()))
		assert.True(t, m.HasValid(0))
		assert.True(t, m.HasValid(30*time.Minute))
	})
	t.Run("min-ttl-not-met", func(t *testing.T) {
		require.NoError(t, m.Store(freshCredentials()))
		assert.False(t, m.HasValid(2*time.Hour))
	})
	t.Run("expired", func(t *testing.T) {
		require.NoError(t, m.Store(expiredCredentials()))
		assert.False(t, m.HasValid(0))
	})
}

func TestManager_Credentials(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh-credentials-no-renewal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{}
		m, _ := newTestManager(t, api)
		require.NoError(m.Store(freshCredentials()))

		creds, err := m.Credentials(ctx)
		require.NoError(err)
		assert.Equal("at-0", creds.AccessToken)
		assert.Equal(0, api.renewCalls)
	})
	t.Run("no-credentials", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		m, _ := newTestManager(t, &fakeAPI{})
		_, err := m.Credentials(ctx)
		require.Error(err)
		assert.True(errors.Is(err, ErrNoCredentials))
	})
	t.Run("expired-without-refresh-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		m, _ := newTestManager(t, &fakeAPI{})
		creds := expiredCredentials()
		creds.RefreshToken = ""
		require.NoError(m.Store(creds))

		_, err := m.Credentials(ctx)
		require.Error(err)
		assert.True(errors.Is(err, ErrNoRefreshToken))
	})
	t.Run("expired-renews-and-stores", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{renewCreds: renewedCredentials()}
		m, storage := newTestManager(t, api)
		require.NoError(m.Store(expiredCredentials()))

		creds, err := m.Credentials(ctx)
		require.NoError(err)
		assert.Equal("at-1", creds.AccessToken)
		assert.Equal("rt-1", creds.RefreshToken)
		require.Equal(1, api.renewCalls)
		assert.Equal("rt-0", api.renewedTokens[0])
		assert.Equal("at-1", storedCredentials(t, storage).AccessToken)
	})
	t.Run("min-ttl-forces-renewal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{renewCreds: renewedCredentials()}
		m, _ := newTestManager(t, api)
		require.NoError(m.Store(freshCredentials())) // one hour left

		creds, err := m.Credentials(ctx, WithMinTTL(2*time.Hour))
		require.NoError(err)
		assert.Equal("at-1", creds.AccessToken)
		assert.Equal(1, api.renewCalls)
	})
	t.Run("refresh-token-fallback", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		renewed := renewedCredentials()
		renewed.RefreshToken = ""
		api := &fakeAPI{renewCreds: renewed}
		m, storage := newTestManager(t, api)
		require.NoError(m.Store(expiredCredentials()))

		creds, err := m.Credentials(ctx)
		require.NoError(err)
		assert.Equal("rt-0", creds.RefreshToken)
		assert.Equal("rt-0", storedCredentials(t, storage).RefreshToken)
	})
	t.Run("scope-change-forces-renewal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{renewCreds: renewedCredentials()}
		m, _ := newTestManager(t, api)
		require.NoError(m.Store(freshCredentials())) // scope "openid profile"

		_, err := m.Credentials(ctx, WithScope("openid profile email"))
		require.NoError(err)
		assert.Equal(1, api.renewCalls)
	})
	t.Run("equivalent-scope-no-renewal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{}
		m, _ := newTestManager(t, api)
		require.NoError(m.Store(freshCredentials()))

		// order and case do not matter for scope comparison
		_, err := m.Credentials(ctx, WithScope("Profile OPENID"))
		require.NoError(err)
		assert.Equal(0, api.renewCalls)
	})
	t.Run("unsatisfiable-min-ttl", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		renewed := renewedCredentials()
		renewed.ExpiresAt = testNow.Add(10 * time.Minute)
		api := &fakeAPI{renewCreds: renewed}
		m, storage := newTestManager(t, api)
		require.NoError(m.Store(expiredCredentials()))

		_, err := m.Credentials(ctx, WithMinTTL(time.Hour))
		require.Error(err)
		assert.True(errors.Is(err, ErrLargeMinTTL))
		// the unusable renewal is not persisted
		assert.Equal("at-0", storedCredentials(t, storage).AccessToken)
	})
	t.Run("renewal-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{renewErr: errors.New("invalid_grant (403): expired token")}
		m, storage := newTestManager(t, api)
		require.NoError(m.Store(expiredCredentials()))

		_, err := m.Credentials(ctx)
		require.Error(err)
		assert.True(errors.Is(err, ErrRenewFailed))
		assert.Equal("at-0", storedCredentials(t, storage).AccessToken)
	})
	t.Run("gate-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{}
		m, _ := newTestManager(t, api, WithGate(failingGate{err: errors.New("face not recognized")}))
		require.NoError(m.Store(freshCredentials()))

		_, err := m.Credentials(ctx)
		require.Error(err)
		assert.True(errors.Is(err, ErrBiometricsFailed))
		assert.Equal(0, api.renewCalls)
	})
	t.Run("concurrent-single-renewal", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{renewCreds: renewedCredentials(), renewDelay: 10 * time.Millisecond}
		m, _ := newTestManager(t, api)
		require.NoError(m.Store(expiredCredentials()))

		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = m.Credentials(ctx)
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(err)
		}
		// the first caller renewed and stored; everybody else read the result
		assert.Equal(1, api.renewCalls)
	})
}

func TestManager_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("no-credentials", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{}
		m, _ := newTestManager(t, api)
		require.NoError(m.Revoke(ctx))
		assert.Equal(0, api.revokeCalls)
	})
	t.Run("no-refresh-token-clears-locally", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{}
		m, storage := newTestManager(t, api)
		creds := freshCredentials()
		creds.RefreshToken = ""
		require.NoError(m.Store(creds))

		require.NoError(m.Revoke(ctx))
		assert.Equal(0, api.revokeCalls)
		_, ok := storage.Get(DefaultStoreKey)
		assert.False(ok)
	})
	t.Run("revokes-and-clears", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{}
		m, storage := newTestManager(t, api)
		require.NoError(m.Store(freshCredentials()))

		require.NoError(m.Revoke(ctx))
		require.Equal(1, api.revokeCalls)
		assert.Equal("rt-0", api.revokedTokens[0])
		_, ok := storage.Get(DefaultStoreKey)
		assert.False(ok)
	})
	t.Run("server-failure-keeps-local", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		api := &fakeAPI{revokeErr: errors.New("server unavailable")}
		m, storage := newTestManager(t, api)
		require.NoError(m.Store(freshCredentials()))

		err := m.Revoke(ctx)
		require.Error(err)
		assert.True(errors.Is(err, ErrRevokeFailed))
		_, ok := storage.Get(DefaultStoreKey)
		assert.True(ok)
	})
}

func TestManager_TokenSource(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	m, _ := newTestManager(t, &fakeAPI{})
	require.NoError(m.Store(freshCredentials()))

	ts := m.TokenSource(context.Background())
	tok, err := ts.Token()
	require.NoError(err)
	assert.Equal("at-0", tok.AccessToken)
	assert.Equal("idt-0", tok.Extra("id_token"))
}
