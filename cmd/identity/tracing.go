package identity

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tasker/identity")

// endSpan marks span as failed for collaborator errors only; client-side
// outcomes (bad input, wrong password, not found) leave the status unset.
func endSpan(span trace.Span, err error) {
	if err != nil && !isClientError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal")
	}
	span.End()
}

func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrNotFound)
}
