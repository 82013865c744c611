package realtime

import (
	"sync"

	v1 "tasker/contracts/realtime/v1"
)

// Client represents one connected observer.
//
// Send is never closed by the server so a concurrent Hub.Deliver cannot panic;
// done signals the connection goroutines to stop. Close is idempotent.
type Client struct {
	SessionID string
	// AccountID is empty for anonymous observers.
	AccountID string
	Send      chan v1.Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(sessionID, accountID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = minSendQueueSize
	}
	return &Client{
		SessionID: sessionID,
		AccountID: accountID,
		Send:      make(chan v1.Envelope, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
