// Package cache mirrors store rating aggregates into Redis so rating reads
// can skip MySQL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RatingCache keeps store:<id>:rating hashes with fields rating and reviews.
// A nil *RatingCache or a nil client turns every call into a miss.
type RatingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRatingCache(rdb *redis.Client, ttl time.Duration) *RatingCache {
	return &RatingCache{rdb: rdb, ttl: ttl}
}

func ratingKey(storeID uint64) string { return fmt.Sprintf("store:%d:rating", storeID) }

func (c *RatingCache) enabled() bool { return c != nil && c.rdb != nil }

// Put stores the aggregate and refreshes the key's TTL.
func (c *RatingCache) Put(ctx context.Context, storeID uint64, rating float64, reviews int) error {
	if !c.enabled() {
		return nil
	}
	key := ratingKey(storeID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"rating", strconv.FormatFloat(rating, 'f', -1, 64),
		"reviews", strconv.Itoa(reviews))
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the cached aggregate.  ok is false on a miss or a malformed
// entry.
func (c *RatingCache) Get(ctx context.Context, storeID uint64) (rating float64, reviews int, ok bool, err error) {
	if !c.enabled() {
		return 0, 0, false, nil
	}
	m, err := c.rdb.HGetAll(ctx, ratingKey(storeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	rs, ok1 := m["rating"]
	ns, ok2 := m["reviews"]
	if !ok1 || !ok2 {
		return 0, 0, false, nil
	}
	rating, err1 := strconv.ParseFloat(rs, 64)
	reviews, err2 := strconv.Atoi(ns)
	if err1 != nil || err2 != nil {
		return 0, 0, false, nil
	}
	return rating, reviews, true, nil
}

// Invalidate drops the cached aggregate of a store.
func (c *RatingCache) Invalidate(ctx context.Context, storeID uint64) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Del(ctx, ratingKey(storeID)).Err()
}
