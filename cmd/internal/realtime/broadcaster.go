package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	v1 "tasker/contracts/realtime/v1"
)

// ChangeEvent is a committed mutation of one resource.
type ChangeEvent struct {
	Kind         string
	ResourceType string
	Resource     any
}

// Sink receives encoded change envelopes in dispatch order.
type Sink interface {
	Deliver(ctx context.Context, env v1.Envelope) error
}

// Broadcaster decouples publishers from delivery.
//
// Publish enqueues onto a bounded intake and returns immediately. A single
// dispatcher (Run) drains the intake in order, so events reach the sink in
// the order their Publish calls returned.
type Broadcaster struct {
	log    *slog.Logger
	sink   Sink
	intake chan ChangeEvent
	now    func() time.Time
}

// NewBroadcaster constructs a Broadcaster. Call Run to start dispatching.
func NewBroadcaster(log *slog.Logger, sink Sink, queueSize int) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultConfig().IntakeQueueSize
	}
	return &Broadcaster{
		log:    log,
		sink:   sink,
		intake: make(chan ChangeEvent, queueSize),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish hands ev to the dispatcher without blocking.
// It reports false when the intake is full and the event was dropped.
func (b *Broadcaster) Publish(ev ChangeEvent) bool {
	if b == nil {
		return false
	}
	select {
	case b.intake <- ev:
		broadcastPublished.WithLabelValues(ev.Kind).Inc()
		return true
	default:
		broadcastDropped.WithLabelValues(dropIntakeFull).Inc()
		b.log.Warn("broadcast.drop", "reason", dropIntakeFull, "kind", ev.Kind, "resource_type", ev.ResourceType)
		return false
	}
}

// Run dispatches events until ctx is done. It is meant to run in exactly one goroutine.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-b.intake:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Broadcaster) dispatch(ctx context.Context, ev ChangeEvent) {
	env, err := encodeChange(ev, b.now())
	if err != nil {
		broadcastDropped.WithLabelValues(dropEncode).Inc()
		b.log.Error("broadcast.encode.fail", "kind", ev.Kind, "resource_type", ev.ResourceType, "err", err)
		return
	}
	if err := b.sink.Deliver(ctx, env); err != nil {
		broadcastDropped.WithLabelValues(dropSink).Inc()
		b.log.Warn("broadcast.deliver.fail", "kind", ev.Kind, "envelope_id", env.ID, "err", err)
	}
}

func encodeChange(ev ChangeEvent, now time.Time) (v1.Envelope, error) {
	if !v1.ValidKind(ev.Kind) {
		return v1.Envelope{}, fmt.Errorf("unknown change kind %q", ev.Kind)
	}
	resource, err := json.Marshal(ev.Resource)
	if err != nil {
		return v1.Envelope{}, fmt.Errorf("marshal resource: %w", err)
	}
	payload, err := json.Marshal(v1.ChangePayload{
		Kind:         ev.Kind,
		ResourceType: ev.ResourceType,
		Resource:     resource,
	})
	if err != nil {
		return v1.Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return newEnvelope(v1.TypeChange, payload, now)
}

func newEnvelope(typ string, payload json.RawMessage, ts time.Time) (v1.Envelope, error) {
	id, err := NewEnvelopeID(ts)
	if err != nil {
		return v1.Envelope{}, err
	}
	return v1.Envelope{
		V:       v1.Version,
		Type:    typ,
		ID:      id,
		TS:      ts,
		Payload: payload,
	}, nil
}
