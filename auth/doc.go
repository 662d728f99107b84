// Package auth is a client for an OAuth2/OIDC provider's token APIs: it
// exchanges authorization codes for tokens, renews tokens with a refresh
// token, revokes refresh tokens, and fetches the provider's signing keys.
//
// All network traffic flows through a narrow Transport collaborator so the
// client can be exercised without a real provider.
package auth
