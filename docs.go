// idkit provides a collection of related packages for client-side
// OAuth2/OIDC identity flows: browser-delegated login with PKCE, ID-token
// validation, and cached credentials with transparent renewal.
//
// See README.md
package idkit
