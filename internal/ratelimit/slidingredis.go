package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow is a Store backed by Redis sorted sets. Every request is a
// member scored by arrival time; members older than the window are trimmed
// before counting.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Allow implements Store.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	until := now.Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max, Reset: until}, nil
	}

	score := float64(now.UnixNano())
	cutoff := float64(now.Add(-window).UnixNano())
	redisKey := l.Prefix + key
	member := key + ":" + uuid.NewString()

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: max, Reset: until}, err
	}

	current := int(countCmd.Val())
	return Decision{
		Allowed:   current <= max,
		Limit:     max,
		Remaining: clamp(max - current),
		Reset:     until,
	}, nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
