package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"roomfinder/internal/models"
)

// RoomCache holds short-lived copies of room details.
type RoomCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRoomCache(rdb *redis.Client, ttl time.Duration) *RoomCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RoomCache{rdb: rdb, ttl: ttl}
}

func roomKey(id int) string {
	return "room:details:" + strconv.Itoa(id)
}

func (c *RoomCache) Get(ctx context.Context, id int) (models.Listing, bool, error) {
	b, err := c.rdb.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Listing{}, false, nil
		}
		return models.Listing{}, false, err
	}
	var l models.Listing
	if err := json.Unmarshal(b, &l); err != nil {
		return models.Listing{}, false, fmt.Errorf("decode cached room %d: %w", id, err)
	}
	return l, true, nil
}

func (c *RoomCache) Set(ctx context.Context, l models.Listing) error {
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, roomKey(l.ID), b, c.ttl).Err()
}

func (c *RoomCache) Invalidate(ctx context.Context, id int) error {
	return c.rdb.Del(ctx, roomKey(id)).Err()
}
