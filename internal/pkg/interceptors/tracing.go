package interceptors

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

// TraceServerInterceptor copies the request id and idempotency key from the
// incoming metadata into the context, generating a request id when the
// caller sent none.
func TraceServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := GetMetadataValue(ctx, constants.HeaderXRequestId)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		idempotencyKey := GetMetadataValue(ctx, constants.HeaderXIdempotencyKey)

		ctx = constants.WithRequestMetadata(ctx, requestID, idempotencyKey)
		slog.DebugContext(ctx, "grpc call", "method", info.FullMethod)

		return handler(ctx, req)
	}
}
