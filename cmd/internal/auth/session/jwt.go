package session

import (
	"errors"
	"fmt"
	"time"

	"tasker/cmd/security/token"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed payload of an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issued describes a freshly signed token.
type Issued struct {
	Token     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// JWTManager issues and verifies HS256 access tokens.
type JWTManager struct {
	issuer string
	ttl    time.Duration
	leeway time.Duration
	key    []byte
}

// NewJWTManager validates cfg and returns a manager bound to its key.
func NewJWTManager(cfg Config) (*JWTManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &JWTManager{
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		leeway: cfg.Leeway,
		key:    key,
	}, nil
}

// TTL reports the validity window of issued tokens.
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for accountID/email valid for TTL from now.
func (m *JWTManager) Issue(accountID, email string, now time.Time) (Issued, error) {
	if accountID == "" {
		return Issued{}, errors.New("session: empty account id")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Second)

	jti, err := token.NewTokenID(now)
	if err != nil {
		return Issued{}, fmt.Errorf("session: token id: %w", err)
	}

	exp := now.Add(m.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return Issued{}, fmt.Errorf("session: sign: %w", err)
	}

	return Issued{Token: signed, TokenID: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks signature first, then expiry, and returns the decoded Identity.
//
// Errors:
//   - ErrTokenExpired when the token is authentic but stale
//   - ErrTokenInvalid for everything else (structure, algorithm, signature, issuer, subject)
func (m *JWTManager) Verify(raw string, now time.Time) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	if now.IsZero() {
		now = time.Now()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(m.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return Identity{ID: claims.Subject, Email: claims.Email}, nil
}
