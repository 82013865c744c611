// Package httpx holds the JSON response and request-decoding helpers shared by
// every HTTP handler, so all endpoints speak the same error envelope.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxBodyBytes bounds request bodies when callers pass 0.
const DefaultMaxBodyBytes int64 = 1 << 20 // 1 MiB

// APIError is the stable machine-readable error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse carries the error envelope and a flat message for simple clients.
type ErrorResponse struct {
	Error   APIError `json:"error"`
	Message string   `json:"message"`
}

// WriteJSON writes v with status. Encoding failures are ignored: headers are already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error":{"code","message"},"message"}.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: msg}, Message: msg})
}

// WriteInternal is the generic 500 body. It never carries error detail.
func WriteInternal(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
}

// DecodeJSON decodes exactly one JSON object from the body, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	return decode(w, r, maxBytes, dst, true)
}

// DecodeJSONLenient is DecodeJSON without the unknown-field check.
// Unknown fields (e.g. a client-supplied owner) are dropped, not bound.
func DecodeJSONLenient(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	return decode(w, r, maxBytes, dst, false)
}

func decode(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any, strict bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme match is case-insensitive; anything else yields "".
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
