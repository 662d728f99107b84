// Package credentials manages the lifecycle of a persisted credential
// record: storing tokens after login, deciding when cached tokens are still
// fresh enough to hand out, and renewing them with the refresh token when
// they are not.
//
// The single persisted record is the only shared mutable resource across
// Manager instances; every refresh decision runs under a shared Serializer so
// concurrent callers never race two renewals against the same refresh token.
package credentials
