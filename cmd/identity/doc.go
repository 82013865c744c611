// Package identity is the credential manager: account registration, login
// and owner-only profile operations.
//
// Passwords are hashed with bcrypt (see cmd/security/password) and never
// leave this package in any form. Login issues a signed bearer token through
// a TokenIssuer; verification of that token lives in the session package.
package identity
