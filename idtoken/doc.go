// Package idtoken validates OIDC ID tokens against a provider's published
// signing keys and the expectations of the flow that requested them (issuer,
// audience, nonce, max_age).
//
// Validation is composed from small single-claim validators which are run in
// a fixed order with short-circuit semantics: the first failing validator
// determines the error. The signature is always checked before any claims.
package idtoken
