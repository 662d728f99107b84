package idtoken

import (
	"context"

	jose "gopkg.in/square/go-jose.v2"
)

// JWKS is a provider's published JSON Web Key Set.
type JWKS struct {
	Keys []jose.JSONWebKey `json:"keys"`
}

// Key returns the key with the given key id, if present.
func (s *JWKS) Key(kid string) (*jose.JSONWebKey, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Keys {
		if s.Keys[i].KeyID == kid {
			return &s.Keys[i], true
		}
	}
	return nil, false
}

// KeyFetcher retrieves the provider's current JWKS. It is typically satisfied
// by an authentication API client, but any source of keys will do.
type KeyFetcher interface {
	JWKS(ctx context.Context) (*JWKS, error)
}

// KeyFetcherFunc is an adapter to allow the use of ordinary functions as
// KeyFetchers.
type KeyFetcherFunc func(ctx context.Context) (*JWKS, error)

func (f KeyFetcherFunc) JWKS(ctx context.Context) (*JWKS, error) {
	return f(ctx)
}
