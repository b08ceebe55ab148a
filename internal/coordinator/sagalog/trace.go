package sagalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var ErrNotFound = errors.New("sagalog: saga not found")

// NewEntry builds a row stamped with the span active in ctx, which is the
// saga span opened by the orchestrator or the otelhttp request span.
// Without a span the trace columns stay empty.
func NewEntry(ctx context.Context, sagaID string, status Status, step, payload string, errs []string) *SagaLog {
	entry := &SagaLog{
		SagaID:        sagaID,
		Status:        status,
		CurrentStep:   step,
		Payload:       payload,
		ErrorMessages: "[]",
		UpdatedAt:     time.Now().UTC(),
	}
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			entry.ErrorMessages = string(b)
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry.TraceID = sc.TraceID().String()
		entry.SpanID = sc.SpanID().String()
	}
	return entry
}
