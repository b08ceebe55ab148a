package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jcmexdev/food-orders/internal/pkg/cache"
)

// inFlight marks a claimed key whose placement has not finished yet.
const inFlight = "in-flight"

// placementClaim is the hold a placement has on its idempotency key. The
// zero value (no cache or no key) makes both methods no-ops.
type placementClaim struct {
	cache cache.Cache
	key   string
	s     *Service
}

// claimPlacement reserves the idempotency key for this placement. When an
// earlier placement with the same key finished, its result is returned for
// replay instead.
func (s *Service) claimPlacement(ctx context.Context, userID, key string) (placementClaim, *PlaceOrderResult, error) {
	if s.cache == nil || key == "" {
		return placementClaim{}, nil, nil
	}
	cacheKey := s.cache.GenerateKey("place", userID+":"+key)

	ok, err := s.cache.SetNX(ctx, cacheKey, inFlight, s.idemTTL)
	if err != nil {
		// Idempotency is best-effort: without the cache the placement still runs.
		slog.WarnContext(ctx, "idempotency claim failed", "key", cacheKey, "error", err)
		return placementClaim{}, nil, nil
	}
	if ok {
		return placementClaim{cache: s.cache, key: cacheKey, s: s}, nil, nil
	}

	val, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		slog.WarnContext(ctx, "idempotency lookup failed", "key", cacheKey, "error", err)
		return placementClaim{}, nil, nil
	}
	if val == inFlight || val == "" {
		return placementClaim{}, nil, ErrPlacementInProgress
	}
	var res PlaceOrderResult
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		slog.WarnContext(ctx, "corrupt idempotency entry", "key", cacheKey, "error", err)
		return placementClaim{}, nil, ErrPlacementInProgress
	}
	return placementClaim{}, &res, nil
}

func (c placementClaim) complete(ctx context.Context, res *PlaceOrderResult) {
	if c.cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err == nil {
		err = c.cache.Set(context.WithoutCancel(ctx), c.key, string(b), c.s.idemTTL)
	}
	if err != nil {
		slog.WarnContext(ctx, "idempotency store failed", "key", c.key, "error", err)
	}
}

// release frees the key so the client can retry a failed placement.
func (c placementClaim) release(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(context.WithoutCancel(ctx), c.key); err != nil {
		slog.WarnContext(ctx, "idempotency release failed", "key", c.key, "error", err)
	}
}
