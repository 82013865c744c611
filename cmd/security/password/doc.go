// Package password provides password hashing and verification.
//
// Hashes are bcrypt (salted, adaptive; cost 10 by default) and the policy
// bounds input length. bcrypt ignores bytes past 72, so MaxBytes defaults to 72
// and longer passwords are rejected instead of silently truncated.
//
// Hash strings are treated as untrusted input during Verify.
package password
