package session

import "errors"

var (
	// ErrUnauthenticated is returned when no bearer credential is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTokenInvalid is returned for malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned for well-formed, correctly signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
