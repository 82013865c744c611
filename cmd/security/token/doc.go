// Package token provides the signing-key and token-id primitives behind
// bearer credentials.
//
// It is the single source of truth for how the signing secret is loaded.
//
// Environment:
// - TASKER_JWT_SECRET: HMAC-SHA256 signing key, at least 32 bytes.
package token
