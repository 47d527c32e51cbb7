package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const reservationPending = "pending"

// ReservationStore guards one-shot operations (booking submissions) with a
// Redis SETNX key held for a dedup window.
type ReservationStore struct {
	rdb *redis.Client
}

func NewReservationStore(rdb *redis.Client) *ReservationStore {
	return &ReservationStore{rdb: rdb}
}

func reservationKey(key string) string {
	return "booking:reserve:" + key
}

// Reserve claims key for ttl. When the key is already held it returns
// ok=false and the stored value, which is "pending" until Complete runs.
func (s *ReservationStore) Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	ok, err := s.rdb.SetNX(ctx, reservationKey(key), reservationPending, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	val, err := s.rdb.Get(ctx, reservationKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return "", false, nil
		}
		return "", false, err
	}
	if val == reservationPending {
		val = ""
	}
	return val, false, nil
}

// Complete stores the outcome of a reserved operation, keeping its TTL.
func (s *ReservationStore) Complete(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, reservationKey(key), value, redis.KeepTTL).Err()
}

// Release frees key so a retry after failure is not treated as duplicate.
func (s *ReservationStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, reservationKey(key)).Err()
}
