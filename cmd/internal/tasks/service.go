package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tasker/cmd/identity/ids"
	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/realtime"
	"tasker/cmd/internal/store"
	"tasker/cmd/internal/validate"
	v1 "tasker/contracts/realtime/v1"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tasker/tasks")

// Publisher receives committed mutations. Publish must not block.
type Publisher interface {
	Publish(ev realtime.ChangeEvent) bool
}

// Service implements scoped task access on top of the generic store.
type Service struct {
	log   *slog.Logger
	store store.Store
	pub   Publisher
	now   func() time.Time
}

// NewService wires a Service. pub may be nil to disable change events.
func NewService(log *slog.Logger, st store.Store, pub Publisher) (*Service, error) {
	if st == nil {
		return nil, errors.New("tasks: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		log:   log,
		store: st,
		pub:   pub,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create stores a task owned by caller. Any owner the client supplied never
// reaches this point; the owner comes from the Identity only.
func (s *Service) Create(ctx context.Context, caller session.Identity, in CreateInput) (task Task, err error) {
	ctx, span := s.start(ctx, "tasks.Create", caller)
	defer func() { endSpan(span, err) }()

	if caller.ID == "" {
		return Task{}, session.ErrUnauthenticated
	}
	if !validate.NonEmptyString(in.Title) {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	now := store.Millis(s.now())
	rec := store.Record{
		"owner_id":   caller.ID,
		"title":      strings.TrimSpace(in.Title),
		"completed":  in.Completed,
		"created_at": now,
		"updated_at": now,
	}
	if in.Description != nil {
		rec["description"] = *in.Description
	}

	id, err := s.store.InsertOne(ctx, store.TableTasks, rec)
	if err != nil {
		// The token outlived its account.
		if errors.Is(err, store.ErrForeignKey) {
			return Task{}, session.ErrUnauthenticated
		}
		return Task{}, fmt.Errorf("tasks: insert: %w", err)
	}

	task = Task{
		ID:          id,
		OwnerID:     caller.ID,
		Title:       rec["title"].(string),
		Description: in.Description,
		Completed:   in.Completed,
		CreatedAt:   time.UnixMilli(now).UTC(),
		UpdatedAt:   time.UnixMilli(now).UTC(),
	}
	s.publish(v1.KindCreated, task)
	return task, nil
}

// List returns the caller's tasks in insertion order.
func (s *Service) List(ctx context.Context, caller session.Identity) (out []Task, err error) {
	ctx, span := s.start(ctx, "tasks.List", caller)
	defer func() { endSpan(span, err) }()

	if caller.ID == "" {
		return nil, session.ErrUnauthenticated
	}

	recs, err := s.store.FindMany(ctx, store.TableTasks, store.Filter{"owner_id": caller.ID})
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	out = make([]Task, 0, len(recs))
	for _, r := range recs {
		out = append(out, taskFromRecord(r))
	}
	span.SetAttributes(attribute.Int("tasks.count", len(out)))
	return out, nil
}

// Get returns the task id if caller owns it, ErrNotFound otherwise.
func (s *Service) Get(ctx context.Context, caller session.Identity, id string) (task Task, err error) {
	ctx, span := s.start(ctx, "tasks.Get", caller)
	defer func() { endSpan(span, err) }()

	if caller.ID == "" {
		return Task{}, session.ErrUnauthenticated
	}
	return s.find(ctx, caller.ID, id)
}

// Update rewrites a task the caller owns. The ownership predicate is part of
// the UPDATE itself; zero affected rows is ErrNotFound.
func (s *Service) Update(ctx context.Context, caller session.Identity, id string, in UpdateInput) (task Task, err error) {
	ctx, span := s.start(ctx, "tasks.Update", caller)
	defer func() { endSpan(span, err) }()

	if caller.ID == "" {
		return Task{}, session.ErrUnauthenticated
	}
	if !validate.NonEmptyString(in.Title) {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !ids.Valid(id) {
		return Task{}, ErrNotFound
	}

	fields := store.Record{
		"title":      strings.TrimSpace(in.Title),
		"updated_at": store.Millis(s.now()),
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Completed != nil {
		fields["completed"] = *in.Completed
	}

	n, err := s.store.UpdateOne(ctx, store.TableTasks, fields, store.Filter{"id": id, "owner_id": caller.ID})
	if err != nil {
		return Task{}, fmt.Errorf("tasks: update: %w", err)
	}
	if n == 0 {
		return Task{}, ErrNotFound
	}

	// Re-read so the event carries the committed row. A delete that lands in
	// between wins: it publishes its own event and this call reports
	// ErrNotFound without publishing, so observers never see the task return.
	task, err = s.find(ctx, caller.ID, id)
	if err != nil {
		return Task{}, err
	}
	s.publish(v1.KindUpdated, task)
	return task, nil
}

// Delete removes a task the caller owns; zero affected rows is ErrNotFound.
func (s *Service) Delete(ctx context.Context, caller session.Identity, id string) (err error) {
	ctx, span := s.start(ctx, "tasks.Delete", caller)
	defer func() { endSpan(span, err) }()

	if caller.ID == "" {
		return session.ErrUnauthenticated
	}
	if !ids.Valid(id) {
		return ErrNotFound
	}

	n, err := s.store.DeleteOne(ctx, store.TableTasks, store.Filter{"id": id, "owner_id": caller.ID})
	if err != nil {
		return fmt.Errorf("tasks: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.publish(v1.KindDeleted, DeletedTask{ID: id, OwnerID: caller.ID})
	return nil
}

// PrepareOwnerRemoval snapshots ownerID's tasks ahead of an account delete
// that cascades to them. The returned func publishes one deleted event per
// task and must only be called once that delete has committed.
func (s *Service) PrepareOwnerRemoval(ctx context.Context, ownerID string) (func(), error) {
	if ownerID == "" {
		return nil, session.ErrUnauthenticated
	}
	recs, err := s.store.FindMany(ctx, store.TableTasks, store.Filter{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("tasks: list for removal: %w", err)
	}
	removed := make([]DeletedTask, 0, len(recs))
	for _, r := range recs {
		removed = append(removed, DeletedTask{ID: r.String("id"), OwnerID: ownerID})
	}
	return func() {
		for _, d := range removed {
			s.publish(v1.KindDeleted, d)
		}
	}, nil
}

func (s *Service) find(ctx context.Context, ownerID, id string) (Task, error) {
	// Malformed ids cannot match a row.
	if !ids.Valid(id) {
		return Task{}, ErrNotFound
	}
	rec, err := s.store.FindOne(ctx, store.TableTasks, store.Filter{"id": id, "owner_id": ownerID})
	if err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("tasks: find: %w", err)
	}
	return taskFromRecord(rec), nil
}

func (s *Service) publish(kind string, resource any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(realtime.ChangeEvent{Kind: kind, ResourceType: ResourceType, Resource: resource})
}

func (s *Service) start(ctx context.Context, name string, caller session.Identity) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("account.id", caller.ID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidInput) && !errors.Is(err, session.ErrUnauthenticated) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal")
	}
	span.End()
}
