package repositories

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"roomfinder/internal/models"
)

// SessionStore keeps gateway sessions in Redis. Keys are hashed so a dump
// of the keyspace does not reveal live session ids.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return "session:" + hex.EncodeToString(sum[:])
}

func (s *SessionStore) Save(ctx context.Context, sess models.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return models.ErrSessionExpired
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), b, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (models.Session, error) {
	b, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, models.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	var sess models.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}
