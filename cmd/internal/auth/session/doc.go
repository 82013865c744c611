// Package session implements stateless bearer authentication.
//
// Access tokens are HS256 JWTs carrying the account id (sub) and email.
// There is no server-side session table: a token is valid exactly when its
// signature verifies under the configured secret and it has not expired.
//
// Verifier turns a request's Authorization header into an Identity bound to
// the request context; downstream handlers read it with IdentityFromContext.
package session
