package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

func TestContextWithPropagatedID(t *testing.T) {
	ctx := constants.WithRequestMetadata(context.Background(), "req-1", "idem-1")
	ctx = ContextWithPropagatedID(ctx)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"req-1"}, md.Get(constants.HeaderXRequestId))
	assert.Equal(t, []string{"idem-1"}, md.Get(constants.HeaderXIdempotencyKey))

	bare := ContextWithPropagatedID(context.Background())
	_, ok = metadata.FromOutgoingContext(bare)
	assert.False(t, ok)
}

func TestTraceServerInterceptor(t *testing.T) {
	intercept := TraceServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	var requestID, idemKey string
	handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
		requestID = constants.RequestID(ctx)
		idemKey = constants.IdempotencyKey(ctx)
		return nil, nil
	}

	in := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		constants.HeaderXRequestId, "req-9",
		constants.HeaderXIdempotencyKey, "key-9",
	))
	_, err := intercept(in, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "req-9", requestID)
	assert.Equal(t, "key-9", idemKey)

	_, err = intercept(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Len(t, requestID, 36, "a uuid is generated when none was sent")
	assert.Empty(t, idemKey)
}
