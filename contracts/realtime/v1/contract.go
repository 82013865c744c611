// Package v1 defines the tasker realtime protocol v1 contract.
//
// The change stream is server-to-client. The only client frame the server
// accepts is a ping, answered with a pong.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is negotiated during the websocket handshake.
const Subprotocol = "tasker.realtime.v1"

// Type constants (wire-stable).
const (
	// TypeHello is sent once after the observer is registered (server -> client).
	TypeHello = "hello"

	// TypeChange carries one committed mutation (server -> client).
	TypeChange = "change"

	// TypePing / TypePong are an application-level liveness check (client -> server -> client).
	TypePing = "ping"
	TypePong = "pong"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello, TypeChange, TypePing, TypePong, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ClientAllowed reports whether a client may send an envelope of type t.
func ClientAllowed(t string) bool {
	return t == TypePing
}
