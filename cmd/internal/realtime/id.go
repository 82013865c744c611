package realtime

import (
	"time"

	"tasker/cmd/identity/ids"
)

// NewSessionID returns a ULID used as observer session id.
func NewSessionID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewEnvelopeID returns a ULID used as envelope id.
// ULIDs sort by time, so envelope ids follow dispatch order.
func NewEnvelopeID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
