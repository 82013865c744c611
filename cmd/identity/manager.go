package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/store"
	"tasker/cmd/internal/validate"
	"tasker/cmd/security/password"

	"go.opentelemetry.io/otel/attribute"
)

// TokenIssuer signs access tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(accountID, email string, now time.Time) (session.Issued, error)
}

// RegisterInput is the registration request. All fields are required.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Account   Account
	Token     string
	ExpiresAt time.Time
}

// OwnedResources is told about account deletions that cascade to rows the
// account owns. Prepare runs before the delete; the returned commit func runs
// only after it succeeded.
type OwnedResources interface {
	PrepareOwnerRemoval(ctx context.Context, ownerID string) (commit func(), err error)
}

// Manager implements registration, login and profile operations on top of
// the generic store.
type Manager struct {
	log    *slog.Logger
	store  store.Store
	pwd    password.Config
	tokens TokenIssuer
	now    func() time.Time
	owned  OwnedResources

	// dummyHash is verified against when an email is unknown so both login
	// failure paths spend a bcrypt comparison.
	dummyHash string
}

// NewManager wires a Manager. log may be nil.
func NewManager(log *slog.Logger, st store.Store, pwd password.Config, tokens TokenIssuer) (*Manager, error) {
	if st == nil {
		return nil, errors.New("identity: nil store")
	}
	if tokens == nil {
		return nil, errors.New("identity: nil token issuer")
	}
	if log == nil {
		log = slog.Default()
	}

	dummy, err := pwd.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}

	return &Manager{
		log:       log,
		store:     st,
		pwd:       pwd,
		tokens:    tokens,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

// SetOwnedResources registers the resources removed along with an account.
func (m *Manager) SetOwnedResources(o OwnedResources) {
	m.owned = o
}

// Register creates an account and returns its id.
//
// Errors:
//   - ErrInvalidInput when username/password are empty, the email is malformed
//     or the password violates policy
//   - ErrDuplicateEmail when the email is taken, including a concurrent insert
//     that wins the race after the pre-check
func (m *Manager) Register(ctx context.Context, in RegisterInput) (id string, err error) {
	const op = "identity.Register"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if !validate.NonEmptyString(in.Username) {
		return "", invalid(op, "username is required")
	}
	if !validate.Email(in.Email) {
		return "", invalid(op, "email is invalid")
	}
	if !validate.NonEmptyString(in.Password) {
		return "", invalid(op, "password is required")
	}
	if err := m.pwd.Validate(in.Password); err != nil {
		return "", invalid(op, err.Error())
	}

	email := NormalizeEmail(in.Email)

	// Fast path only; the unique index on accounts.email decides races.
	_, err = m.store.FindOne(ctx, store.TableAccounts, store.Filter{"email": email})
	switch {
	case err == nil:
		return "", ConflictError{Op: op, Field: "email"}
	case !errors.Is(err, store.ErrNoRecord):
		return "", fmt.Errorf("%s: find: %w", op, err)
	}

	hash, err := m.pwd.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("%s: hash: %w", op, err)
	}

	now := store.Millis(m.now())
	id, err = m.store.InsertOne(ctx, store.TableAccounts, store.Record{
		"username":      NormalizeUsername(in.Username),
		"email":         email,
		"password_hash": hash,
		"created_at":    now,
		"updated_at":    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return "", ConflictError{Op: op, Field: "email"}
		}
		return "", fmt.Errorf("%s: insert: %w", op, err)
	}

	span.SetAttributes(attribute.String("account.id", id))
	return id, nil
}

// Login verifies email/password and issues a token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, email, pw string) (res LoginResult, err error) {
	const op = "identity.Login"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if !validate.Email(email) || !validate.NonEmptyString(pw) {
		return LoginResult{}, invalidCredentials()
	}

	rec, err := m.store.FindOne(ctx, store.TableAccounts, store.Filter{"email": NormalizeEmail(email)})
	if err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			_, _ = m.pwd.Verify(m.dummyHash, pw)
			return LoginResult{}, invalidCredentials()
		}
		return LoginResult{}, fmt.Errorf("%s: find: %w", op, err)
	}

	ok, err := m.pwd.Verify(rec.String("password_hash"), pw)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: verify: %w", op, err)
	}
	if !ok {
		return LoginResult{}, invalidCredentials()
	}

	acct := accountFromRecord(rec)
	issued, err := m.tokens.Issue(acct.ID, acct.Email, m.now())
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: issue: %w", op, err)
	}

	span.SetAttributes(attribute.String("account.id", acct.ID))
	return LoginResult{Account: acct, Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}
