package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Saad200724/MeowMeowPetShop-Construction-sub001/pkg/errors"
)

func TestIdempotencyRepository_Lifecycle(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewIdempotencyRepository(client, time.Hour)
	ctx := context.Background()

	stored, reserved, err := repo.Reserve(ctx, "user-1:abc")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, stored)
	assert.Equal(t, time.Hour, mr.TTL("checkout:idem:user-1:abc"))

	_, _, err = repo.Reserve(ctx, "user-1:abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	require.NoError(t, repo.Complete(ctx, "user-1:abc", []byte(`{"order":{"id":"o1"}}`)))

	stored, reserved, err = repo.Reserve(ctx, "user-1:abc")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.JSONEq(t, `{"order":{"id":"o1"}}`, string(stored))
}

func TestIdempotencyRepository_ReleaseAllowsRetry(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewIdempotencyRepository(client, time.Hour)
	ctx := context.Background()

	_, reserved, err := repo.Reserve(ctx, "k")
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, repo.Release(ctx, "k"))

	_, reserved, err = repo.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestIdempotencyRepository_KeyExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewIdempotencyRepository(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Complete(ctx, "k", []byte("done")))
	mr.FastForward(2 * time.Minute)

	_, reserved, err := repo.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestIdempotencyRepository_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewIdempotencyRepository(client, time.Minute)
	mr.Close()

	_, _, err := repo.Reserve(context.Background(), "k")
	assert.Error(t, err)
}
