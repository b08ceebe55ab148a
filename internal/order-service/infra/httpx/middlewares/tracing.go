package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/food-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

// AttachTracingMetadata copies chi's request id and the client's idempotency
// key into the context, and into outgoing gRPC metadata for downstream calls.
// It must run after middleware.RequestID.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(constants.HeaderXIdempotencyKey)

		ctx := constants.WithRequestMetadata(r.Context(), requestID, idempotencyKey)
		ctx = interceptors.ContextWithPropagatedID(ctx)
		w.Header().Set(constants.HeaderXRequestId, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
