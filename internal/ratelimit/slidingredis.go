package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingScript trims hits older than the window, records the new hit only
// when it fits and reports when the oldest recorded hit leaves the window.
// Scores are unix milliseconds and members carry the same value as a prefix.
var slidingScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[5])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < limit then
  redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
local reset = now + window
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0)
if oldest[1] then
  reset = tonumber(string.match(oldest[1], '^(%d+):')) + window
end
return {allowed, count, reset}
`)

// SlidingWindow is a sliding-log limiter kept in a Redis sorted set per key.
// Rejected hits are not recorded, so a client that keeps retrying regains
// capacity as soon as its oldest accepted hit ages out.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Allow records one hit for key when fewer than max hits landed in the last window.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := l.now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}
	windowMS := window.Milliseconds()
	if windowMS < 1 {
		windowMS = 1
	}
	nowMS := now.UnixMilli()
	member := fmt.Sprintf("%d:%s", nowMS, uuid.NewString())
	res, err := slidingScript.Run(ctx, l.Client, []string{l.Prefix + key},
		nowMS, windowMS, max, member, nowMS-windowMS).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	if len(res) != 3 {
		return false, 0, now.Add(window), fmt.Errorf("sliding window: unexpected reply %v", res)
	}
	remaining := max - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return res[0] == 1, remaining, time.UnixMilli(res[2]), nil
}

func (l SlidingWindow) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
