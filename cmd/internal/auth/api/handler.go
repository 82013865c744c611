package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"tasker/cmd/identity"
	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/httpx"
)

// Accounts is the credential manager surface used by the handlers.
type Accounts interface {
	Register(ctx context.Context, in identity.RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (identity.LoginResult, error)
	GetAccount(ctx context.Context, caller session.Identity, id string) (identity.Account, error)
	UpdateAccount(ctx context.Context, caller session.Identity, id string, patch identity.AccountPatch) (identity.Account, error)
	DeleteAccount(ctx context.Context, caller session.Identity, id string) error
}

// Guard wraps handlers that need an authenticated Identity.
type Guard interface {
	Require(next http.Handler) http.Handler
}

// Handler wires HTTP auth and profile endpoints to the credential manager.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	accounts Accounts
	guard    Guard
	limiter  *ipLimiter
	now      func() time.Time
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, accounts Accounts, guard Guard) (*Handler, error) {
	if accounts == nil {
		return nil, errors.New("authapi: nil accounts")
	}
	if guard == nil {
		return nil, errors.New("authapi: nil guard")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		guard:    guard,
		limiter:  newIPLimiter(cfg.RatePerSecond, cfg.RateBurst, cfg.RateIdleTTL),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.Handle("GET /me", h.guard.Require(http.HandlerFunc(h.handleMe)))
	mux.Handle("GET /users/{id}", h.guard.Require(http.HandlerFunc(h.handleGetUser)))
	mux.Handle("PUT /users/{id}", h.guard.Require(http.HandlerFunc(h.handleUpdateUser)))
	mux.Handle("DELETE /users/{id}", h.guard.Require(http.HandlerFunc(h.handleDeleteUser)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.throttle(w, r) {
		return
	}

	var req registerRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	id, err := h.accounts.Register(r.Context(), identity.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username, valid email and password are required")
		case errors.Is(err, identity.ErrDuplicateEmail):
			httpx.WriteError(w, http.StatusBadRequest, "duplicate_email", "email already registered")
		default:
			h.log.Error("auth.register.fail", "err", err)
			httpx.WriteInternal(w)
		}
		return
	}

	h.log.Info("auth.register.ok", "account_id", id)
	httpx.WriteJSON(w, http.StatusCreated, registerResponse{ID: id, Message: "user registered"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.throttle(w, r) {
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.log.Info("auth.login.fail", "ip", ipString(clientIP(r, h.cfg.TrustProxy)))
			httpx.WriteError(w, http.StatusBadRequest, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.issue.fail", "err", err)
		httpx.WriteInternal(w)
		return
	}

	h.log.Info("auth.login.ok", "account_id", res.Account.ID)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Message:   "login successful",
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	acct, err := h.accounts.GetAccount(r.Context(), caller, caller.ID)
	if err != nil {
		h.writeAccountError(w, "auth.me.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountResponse{Account: acct})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	acct, err := h.accounts.GetAccount(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		h.writeAccountError(w, "users.get.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountResponse{Account: acct})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req updateAccountRequest
	if err := httpx.DecodeJSONLenient(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	acct, err := h.accounts.UpdateAccount(r.Context(), caller, r.PathValue("id"), identity.AccountPatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeAccountError(w, "users.update.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accountResponse{Account: acct, Message: "user updated"})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := session.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if err := h.accounts.DeleteAccount(r.Context(), caller, r.PathValue("id")); err != nil {
		h.writeAccountError(w, "users.delete.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "user deleted"})
}

// ---- helpers ----

func (h *Handler) writeAccountError(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, identity.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid user fields")
	case errors.Is(err, identity.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusBadRequest, "duplicate_email", "email already registered")
	default:
		h.log.Error(event, "err", err)
		httpx.WriteInternal(w)
	}
}

// throttle applies the per-IP limiter and writes 429 when exceeded.
func (h *Handler) throttle(w http.ResponseWriter, r *http.Request) bool {
	ip := ipString(clientIP(r, h.cfg.TrustProxy))
	ok, retryAfter := h.limiter.allow(ip, h.now())
	if ok {
		return true
	}
	h.log.Warn("auth.rate_limited", "ip", ip, "path", r.URL.Path)
	writeRateLimited(w, retryAfter)
	return false
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
