package ratelimit

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Fixed is a Store backed by a ulule/limiter store. With the in-memory driver
// it serves single-instance deployments that run without Redis.
type Fixed struct {
	Store limiter.Store
}

// NewMemory returns a Fixed store kept in process memory.
func NewMemory(prefix string) Fixed {
	return Fixed{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Store.
func (f Fixed) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if f.Store == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max, Reset: time.Now().Add(window)}, nil
	}
	res, err := limiter.New(f.Store, limiter.Rate{Period: window, Limit: int64(max)}).Get(ctx, key)
	if err != nil {
		return Decision{Limit: max}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
