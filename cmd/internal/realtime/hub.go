package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	v1 "tasker/contracts/realtime/v1"
)

// ErrDuplicateSession is returned by Connect when the session id is already registered.
var ErrDuplicateSession = errors.New("realtime: duplicate session id")

// Hub is the registry of connected observers.
//
// Connect/Disconnect take the write lock; Deliver takes the read lock and
// never blocks: a full observer queue drops the envelope for that observer only.
type Hub struct {
	log *slog.Logger

	mu        sync.RWMutex
	observers map[string]*Client
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:       log,
		observers: make(map[string]*Client),
	}
}

// Connect registers c. Events delivered before Connect are never seen by c.
func (h *Hub) Connect(c *Client) error {
	if c == nil || c.SessionID == "" {
		return errors.New("realtime: client without session id")
	}

	h.mu.Lock()
	if _, ok := h.observers[c.SessionID]; ok {
		h.mu.Unlock()
		return ErrDuplicateSession
	}
	h.observers[c.SessionID] = c
	n := len(h.observers)
	h.mu.Unlock()

	observersGauge.Set(float64(n))
	h.log.Info("observer.connect", "session_id", c.SessionID, "account_id", c.AccountID, "observers", n)
	return nil
}

// Disconnect removes the observer and then signals its shutdown.
func (h *Hub) Disconnect(sessionID string) {
	if sessionID == "" {
		return
	}

	h.mu.Lock()
	c := h.observers[sessionID]
	delete(h.observers, sessionID)
	n := len(h.observers)
	h.mu.Unlock()

	if c == nil {
		return
	}
	// Removed before Close so no Deliver holds it while it tears down.
	c.Close()

	observersGauge.Set(float64(n))
	h.log.Info("observer.disconnect", "session_id", sessionID, "observers", n)
}

// CloseAll disconnects every observer. Used on server shutdown, since
// hijacked connections are not drained by http.Server.Shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	closing := make([]*Client, 0, len(h.observers))
	for id, c := range h.observers {
		closing = append(closing, c)
		delete(h.observers, id)
	}
	h.mu.Unlock()

	for _, c := range closing {
		c.Close()
	}
	observersGauge.Set(0)
	if len(closing) > 0 {
		h.log.Info("observer.close_all", "observers", len(closing))
	}
}

// Len reports the number of connected observers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Deliver fans env out to every connected observer. It implements Sink.
func (h *Hub) Deliver(_ context.Context, env v1.Envelope) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.observers {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			broadcastDropped.WithLabelValues(dropObserverFull).Inc()
			h.log.Warn("broadcast.drop", "reason", dropObserverFull, "session_id", c.SessionID)
		}
	}
	return nil
}
