package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunGuard remembers which (submission, feed) pairs were already sent so
// a redelivered submission never produces a second conversation.
type RunGuard struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRunGuard(rdb *redis.Client, ttl time.Duration) *RunGuard {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RunGuard{rdb: rdb, prefix: "formdesk:run:", ttl: ttl}
}

// Claim returns true the first time it is called for a pair.
func (g *RunGuard) Claim(ctx context.Context, submissionID string, feedID int64) (bool, error) {
	key := g.prefix + submissionID + ":" + strconv.FormatInt(feedID, 10)
	return g.rdb.SetNX(ctx, key, time.Now().Unix(), g.ttl).Result()
}
