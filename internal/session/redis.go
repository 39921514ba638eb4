package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/scoopstand/api/internal/service"
)

// RedisStore keeps sessions in Redis as JSON. Every write refreshes the TTL,
// so an idle kiosk session expires TTL after its last change.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func (s *RedisStore) key(id uuid.UUID) string {
	return "kiosk:session:" + id.String()
}

func (s *RedisStore) Create(ctx context.Context, order service.Order) (uuid.UUID, error) {
	id := uuid.New()
	data, err := json.Marshal(order)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode session: %w", err)
	}
	if err := s.Client.Set(ctx, s.key(id), data, s.TTL).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (service.Order, error) {
	data, err := s.Client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return service.Order{}, ErrNotFound
		}
		return service.Order{}, fmt.Errorf("get session: %w", err)
	}

	var o service.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return service.Order{}, fmt.Errorf("decode session: %w", err)
	}
	return o, nil
}

// Save overwrites an existing session only (SET XX).
func (s *RedisStore) Save(ctx context.Context, id uuid.UUID, order service.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.Client.SetXX(ctx, s.key(id), data, s.TTL).Result()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.Client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
