package v1

import "encoding/json"

// Change kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// ValidKind reports whether k is one of the change kinds.
func ValidKind(k string) bool {
	switch k {
	case KindCreated, KindUpdated, KindDeleted:
		return true
	}
	return false
}

// HelloPayload tells the observer its session id.
type HelloPayload struct {
	SessionID     string `json:"session_id"`
	Authenticated bool   `json:"authenticated"`
}

// ChangePayload is a committed mutation of one resource.
// For deletes, Resource carries only the identifying fields.
type ChangePayload struct {
	Kind         string          `json:"kind"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
