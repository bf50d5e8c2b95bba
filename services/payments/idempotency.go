package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "payment:idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// IdempotencyStore guarda uma cópia do resultado de um pagamento por chave
// de idempotência. O agregado no banco continua sendo a fonte de verdade;
// a expiração de uma entrada apenas permite uma nova chamada ao provedor.
type IdempotencyStore interface {
	Put(ctx context.Context, key string, payment *Payment, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Payment, error)
	Delete(ctx context.Context, key string) error
	ExtendTTL(ctx context.Context, key string, ttl time.Duration) error
}

// RedisIdempotencyStore implementa IdempotencyStore usando Redis
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore cria uma nova instância de RedisIdempotencyStore
func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

// Put armazena o resultado do pagamento sob a chave com TTL
func (s *RedisIdempotencyStore) Put(ctx context.Context, key string, payment *Payment, ttl time.Duration) error {
	payload, err := json.Marshal(payment)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, idempotencyKeyPrefix+key, payload, ttl).Err()
}

// Get retorna o pagamento armazenado, ou (nil, nil) quando ausente
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*Payment, error) {
	payload, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var payment Payment
	if err := json.Unmarshal(payload, &payment); err != nil {
		// Entrada corrompida se comporta como cache miss
		log.Printf("❌ Corrupted idempotency entry for key %s: %v", key, err)
		return nil, nil
	}

	return &payment, nil
}

// Delete remove a entrada de idempotência
func (s *RedisIdempotencyStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

// ExtendTTL estende o prazo de expiração da entrada
func (s *RedisIdempotencyStore) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, idempotencyKeyPrefix+key, ttl).Err()
}
