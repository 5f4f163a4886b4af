package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
)

const (
	idempotencyKeyPrefix = "checkout:idem:"
	pendingMarker        = "pending"
)

// IdempotencyRepository implements repository.IdempotencyRepository. A key
// holds "pending" while its request runs and the response body afterwards.
type IdempotencyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyRepository creates a Redis-backed idempotency store.
func NewIdempotencyRepository(client *redis.Client, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{client: client, ttl: ttl}
}

// Reserve claims key for a new request.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string) ([]byte, bool, error) {
	k := idempotencyKeyPrefix + key

	ok, err := r.client.SetNX(ctx, k, pendingMarker, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	stored, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = r.client.SetNX(ctx, k, pendingMarker, r.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("redis reserve idempotency key: %w", err)
		}
		if ok {
			return nil, true, nil
		}
		return nil, false, apperrors.Conflict("a request with this idempotency key is already in progress")
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get idempotency key: %w", err)
	}
	if string(stored) == pendingMarker {
		return nil, false, apperrors.Conflict("a request with this idempotency key is already in progress")
	}
	return stored, false, nil
}

// Complete stores the final response for key.
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, response []byte) error {
	if err := r.client.Set(ctx, idempotencyKeyPrefix+key, response, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis complete idempotency key: %w", err)
	}
	return nil
}

// Release drops key after a failed request.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis release idempotency key: %w", err)
	}
	return nil
}
