package interceptors

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

// ContextWithPropagatedID appends the request id and idempotency key held by
// ctx to the outgoing gRPC metadata.
func ContextWithPropagatedID(ctx context.Context) context.Context {
	if id := constants.RequestID(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, constants.HeaderXRequestId, id)
	}
	if key := constants.IdempotencyKey(ctx); key != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, constants.HeaderXIdempotencyKey, key)
	}
	return ctx
}

// GetMetadataValue looks key up in incoming, then outgoing, metadata.
func GetMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
