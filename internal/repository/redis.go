package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"compass/internal/model"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session id twice
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionConflict is returned when a session changed during an update
	ErrSessionConflict = errors.New("session was modified concurrently")
)

const sessionKeyPrefix = "compass:session:"

// RedisSessionStore keeps conversation sessions in Redis with a sliding TTL
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a session store on an existing client
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Ping checks the connection
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Create stores a new session; it fails if the id is taken
func (s *RedisSessionStore) Create(ctx context.Context, sess *model.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(sess.ID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

// Get loads a session
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.load(ctx, s.client, id)
}

// Save writes sess back if the stored copy still carries sess.Version, then
// bumps the version. A session changed since it was read yields
// ErrSessionConflict and is left as the other writer stored it.
func (s *RedisSessionStore) Save(ctx context.Context, sess *model.Session) error {
	key := sessionKey(sess.ID)
	next := *sess
	next.Version++
	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := s.load(ctx, tx, sess.ID)
		if err != nil {
			return err
		}
		if stored.Version != sess.Version {
			return ErrSessionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrSessionConflict
	}
	if err != nil {
		return err
	}
	sess.Version = next.Version
	return nil
}

func (s *RedisSessionStore) load(ctx context.Context, c getter, id string) (*model.Session, error) {
	payload, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
