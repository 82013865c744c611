package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tasker/cmd/internal/httpx"
)

// TokenVerifier verifies a raw token at a given instant.
type TokenVerifier interface {
	Verify(raw string, now time.Time) (Identity, error)
}

// Verifier is the bearer-auth middleware. It is stateless and safe for concurrent use.
type Verifier struct {
	log    *slog.Logger
	tokens TokenVerifier
	now    func() time.Time
}

// NewVerifier constructs a Verifier. A nil log falls back to slog.Default().
func NewVerifier(log *slog.Logger, tokens TokenVerifier) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{
		log:    log,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate runs extract → verify → expiry and returns the Identity.
func (v *Verifier) Authenticate(r *http.Request) (Identity, error) {
	return v.AuthenticateToken(httpx.BearerToken(r))
}

// AuthenticateToken is Authenticate for an already extracted token.
func (v *Verifier) AuthenticateToken(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	return v.tokens.Verify(raw, v.now())
}

// Require rejects requests without a valid bearer token with 401 and binds
// the Identity into the request context otherwise.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := v.Authenticate(r)
		if err != nil {
			v.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// reject keeps invalid and expired indistinguishable to the caller and distinct in logs.
func (v *Verifier) reject(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tasker"`)

	switch {
	case errors.Is(err, ErrUnauthenticated):
		v.log.Debug("auth.token.missing", "path", r.URL.Path)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
	case errors.Is(err, ErrTokenExpired):
		v.log.Info("auth.token.expired", "path", r.URL.Path)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
	default:
		v.log.Warn("auth.token.invalid", "path", r.URL.Path, "remote", r.RemoteAddr, "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
	}
}
