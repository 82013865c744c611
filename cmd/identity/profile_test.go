package identity

import (
	"context"
	"sync"
	"testing"

	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/realtime"
	"tasker/cmd/internal/store"
	"tasker/cmd/internal/tasks"
	v1 "tasker/contracts/realtime/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, f fixture, email string) session.Identity {
	t.Helper()
	id, err := f.mgr.Register(context.Background(), RegisterInput{Username: "user", Email: email, Password: "pw"})
	require.NoError(t, err)
	return session.Identity{ID: id, Email: email}
}

func strPtr(s string) *string { return &s }

func TestGetAccount_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "a@example.com")
	b := register(t, f, "b@example.com")

	acct, err := f.mgr.GetAccount(ctx, a, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", acct.Email)
	assert.Equal(t, "user", acct.Username)

	_, err = f.mgr.GetAccount(ctx, b, a.ID)
	assert.True(t, IsNotFound(err))

	_, err = f.mgr.GetAccount(ctx, a, "missing")
	assert.True(t, IsNotFound(err))
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "a@example.com")
	b := register(t, f, "b@example.com")

	acct, err := f.mgr.UpdateAccount(ctx, a, a.ID, AccountPatch{Username: strPtr("  ann  ")})
	require.NoError(t, err)
	assert.Equal(t, "ann", acct.Username)

	_, err = f.mgr.UpdateAccount(ctx, a, a.ID, AccountPatch{Email: strPtr("B@example.com")})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.mgr.UpdateAccount(ctx, b, a.ID, AccountPatch{Username: strPtr("mallory")})
	assert.True(t, IsNotFound(err))

	_, err = f.mgr.UpdateAccount(ctx, a, a.ID, AccountPatch{})
	assert.True(t, IsInvalidInput(err))

	_, err = f.mgr.UpdateAccount(ctx, a, a.ID, AccountPatch{Email: strPtr("bad")})
	assert.True(t, IsInvalidInput(err))

	// Keeping one's own email is not a conflict.
	_, err = f.mgr.UpdateAccount(ctx, a, a.ID, AccountPatch{Email: strPtr("a@example.com")})
	require.NoError(t, err)
}

func TestUpdateAccount_PasswordRehashed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "a@example.com")

	_, err := f.mgr.UpdateAccount(ctx, a, a.ID, AccountPatch{Password: strPtr("new-secret")})
	require.NoError(t, err)

	_, err = f.mgr.Login(ctx, "a@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := f.mgr.Login(ctx, "a@example.com", "new-secret")
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.Account.ID)
}

func TestDeleteAccount_CascadesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "a@example.com")
	b := register(t, f, "b@example.com")

	now := store.Millis(f.mgr.now())
	_, err := f.store.InsertOne(ctx, store.TableTasks, store.Record{
		"owner_id": a.ID, "title": "t", "completed": false, "created_at": now, "updated_at": now,
	})
	require.NoError(t, err)

	assert.True(t, IsNotFound(f.mgr.DeleteAccount(ctx, b, a.ID)))

	require.NoError(t, f.mgr.DeleteAccount(ctx, a, a.ID))
	assert.True(t, IsNotFound(f.mgr.DeleteAccount(ctx, a, a.ID)))

	tasks, err := f.store.FindMany(ctx, store.TableTasks, store.Filter{"owner_id": a.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

type eventLog struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (l *eventLog) Publish(ev realtime.ChangeEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return true
}

func (l *eventLog) kind(kind string) []realtime.ChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []realtime.ChangeEvent
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestDeleteAccount_PublishesCascadedTaskDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "a@example.com")
	b := register(t, f, "b@example.com")

	events := &eventLog{}
	svc, err := tasks.NewService(nil, f.store, events)
	require.NoError(t, err)
	f.mgr.SetOwnedResources(svc)

	t1, err := svc.Create(ctx, a, tasks.CreateInput{Title: "one"})
	require.NoError(t, err)
	t2, err := svc.Create(ctx, a, tasks.CreateInput{Title: "two"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, b, tasks.CreateInput{Title: "theirs"})
	require.NoError(t, err)

	assert.True(t, IsNotFound(f.mgr.DeleteAccount(ctx, b, a.ID)))
	assert.Empty(t, events.kind(v1.KindDeleted))

	require.NoError(t, f.mgr.DeleteAccount(ctx, a, a.ID))

	deleted := events.kind(v1.KindDeleted)
	require.Len(t, deleted, 2)
	assert.Equal(t, tasks.DeletedTask{ID: t1.ID, OwnerID: a.ID}, deleted[0].Resource)
	assert.Equal(t, tasks.DeletedTask{ID: t2.ID, OwnerID: a.ID}, deleted[1].Resource)
	for _, ev := range deleted {
		assert.Equal(t, tasks.ResourceType, ev.ResourceType)
	}

	_, err = svc.Get(ctx, a, t1.ID)
	assert.ErrorIs(t, err, tasks.ErrNotFound)
}

type stubOwned struct {
	prepared  int
	committed int
}

func (s *stubOwned) PrepareOwnerRemoval(context.Context, string) (func(), error) {
	s.prepared++
	return func() { s.committed++ }, nil
}

func TestDeleteAccount_NoCascadeEventsWhenNothingDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "a@example.com")

	owned := &stubOwned{}
	f.mgr.SetOwnedResources(owned)

	require.NoError(t, f.mgr.DeleteAccount(ctx, a, a.ID))
	assert.Equal(t, 1, owned.committed)

	assert.True(t, IsNotFound(f.mgr.DeleteAccount(ctx, a, a.ID)))
	assert.Equal(t, 2, owned.prepared)
	assert.Equal(t, 1, owned.committed)
}
