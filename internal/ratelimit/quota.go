package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Quota is a fixed-window limiter on top of ulule/limiter. It suits coarse
// per-session quotas such as order placement.
type Quota struct {
	Store limiter.Store
}

// NewRedisQuota wires a Quota backed by Redis.
func NewRedisQuota(rdb *redis.Client, prefix string) (Quota, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return Quota{}, err
	}
	return Quota{Store: store}, nil
}

// Allow consumes one token for key in a window of the given length.
func (q Quota) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if q.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	l := limiter.New(q.Store, limiter.Rate{Period: window, Limit: int64(max)})
	res, err := l.Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
