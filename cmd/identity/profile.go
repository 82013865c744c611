package identity

import (
	"context"
	"errors"
	"fmt"

	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/store"
	"tasker/cmd/internal/validate"
)

// AccountPatch carries optional profile changes. Nil fields are left untouched.
type AccountPatch struct {
	Username *string
	Email    *string
	Password *string
}

func (p AccountPatch) empty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil
}

// GetAccount returns the account id. Callers may only read their own account;
// any other id is ErrNotFound.
func (m *Manager) GetAccount(ctx context.Context, caller session.Identity, id string) (acct Account, err error) {
	const op = "identity.GetAccount"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if id == "" || id != caller.ID {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}

	rec, err := m.store.FindOne(ctx, store.TableAccounts, store.Filter{"id": id})
	if err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, fmt.Errorf("%s: find: %w", op, err)
	}
	return accountFromRecord(rec), nil
}

// UpdateAccount applies patch to the caller's own account and returns the
// stored result. Email changes are re-checked for uniqueness; password
// changes are re-hashed.
func (m *Manager) UpdateAccount(ctx context.Context, caller session.Identity, id string, patch AccountPatch) (acct Account, err error) {
	const op = "identity.UpdateAccount"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if id == "" || id != caller.ID {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	if patch.empty() {
		return Account{}, invalid(op, "no fields to update")
	}

	fields := store.Record{}
	if patch.Username != nil {
		if !validate.NonEmptyString(*patch.Username) {
			return Account{}, invalid(op, "username is required")
		}
		fields["username"] = NormalizeUsername(*patch.Username)
	}
	if patch.Email != nil {
		if !validate.Email(*patch.Email) {
			return Account{}, invalid(op, "email is invalid")
		}
		email := NormalizeEmail(*patch.Email)
		existing, err := m.store.FindOne(ctx, store.TableAccounts, store.Filter{"email": email})
		switch {
		case err == nil && existing.String("id") != id:
			return Account{}, ConflictError{Op: op, Field: "email"}
		case err != nil && !errors.Is(err, store.ErrNoRecord):
			return Account{}, fmt.Errorf("%s: find: %w", op, err)
		}
		fields["email"] = email
	}
	if patch.Password != nil {
		if err := m.pwd.Validate(*patch.Password); err != nil {
			return Account{}, invalid(op, err.Error())
		}
		hash, err := m.pwd.Hash(*patch.Password)
		if err != nil {
			return Account{}, fmt.Errorf("%s: hash: %w", op, err)
		}
		fields["password_hash"] = hash
	}
	fields["updated_at"] = store.Millis(m.now())

	n, err := m.store.UpdateOne(ctx, store.TableAccounts, fields, store.Filter{"id": id})
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return Account{}, ConflictError{Op: op, Field: "email"}
		}
		return Account{}, fmt.Errorf("%s: update: %w", op, err)
	}
	if n == 0 {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}

	rec, err := m.store.FindOne(ctx, store.TableAccounts, store.Filter{"id": id})
	if err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, fmt.Errorf("%s: reload: %w", op, err)
	}
	return accountFromRecord(rec), nil
}

// DeleteAccount removes the caller's own account. Its tasks go with it.
func (m *Manager) DeleteAccount(ctx context.Context, caller session.Identity, id string) (err error) {
	const op = "identity.DeleteAccount"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if id == "" || id != caller.ID {
		return NotFoundError{Op: op, Resource: "account"}
	}

	commit := func() {}
	if m.owned != nil {
		commit, err = m.owned.PrepareOwnerRemoval(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: prepare cascade: %w", op, err)
		}
	}

	n, err := m.store.DeleteOne(ctx, store.TableAccounts, store.Filter{"id": id})
	if err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}
	if n == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	commit()
	return nil
}
