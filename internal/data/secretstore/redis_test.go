package secretstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-account/internal/data/entity"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, zap.NewNop())
}

func TestKeyNamespacing(t *testing.T) {
	regKey := Key(entity.PurposeRegistration, "a@x.com")
	resetKey := Key(entity.PurposeForgotPassword, "a@x.com")

	assert.Equal(t, "otp:registration:a@x.com", regKey)
	assert.Equal(t, "otp:forgot-password:a@x.com", resetKey)
	assert.NotEqual(t, regKey, resetKey)
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	issued := time.Now().UTC().Truncate(time.Second)
	pending := &entity.PendingOTP{Code: "123456", IssuedAt: issued}

	key := Key(entity.PurposeRegistration, "a@x.com")
	require.NoError(t, store.Set(ctx, key, pending, time.Minute))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "123456", got.Code)
	assert.True(t, got.IssuedAt.Equal(issued))
}

func TestGetAbsentKey(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get(context.Background(), Key(entity.PurposeRegistration, "missing@x.com"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := Key(entity.PurposeRegistration, "a@x.com")

	require.NoError(t, store.Set(ctx, key, &entity.PendingOTP{Code: "111111", IssuedAt: time.Now()}, time.Minute))
	require.NoError(t, store.Set(ctx, key, &entity.PendingOTP{Code: "222222", IssuedAt: time.Now()}, time.Minute))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "222222", got.Code)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := Key(entity.PurposeForgotPassword, "a@x.com")

	require.NoError(t, store.Set(ctx, key, &entity.PendingOTP{Code: "654321", IssuedAt: time.Now()}, time.Minute))
	require.NoError(t, store.Delete(ctx, key))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompareAndDeleteConsumesOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := Key(entity.PurposeRegistration, "a@x.com")

	require.NoError(t, store.Set(ctx, key, &entity.PendingOTP{Code: "123456", IssuedAt: time.Now()}, time.Minute))

	pending, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, pending)

	deleted, err := store.CompareAndDelete(ctx, key, pending)
	require.NoError(t, err)
	assert.True(t, deleted)

	// A second consume with the same snapshot loses the race.
	deleted, err = store.CompareAndDelete(ctx, key, pending)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCompareAndDeleteSkipsReplacedValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := Key(entity.PurposeRegistration, "a@x.com")

	require.NoError(t, store.Set(ctx, key, &entity.PendingOTP{Code: "111111", IssuedAt: time.Now()}, time.Minute))

	stale, err := store.Get(ctx, key)
	require.NoError(t, err)

	// Reissue replaces the pending code before the stale consumer commits.
	require.NoError(t, store.Set(ctx, key, &entity.PendingOTP{Code: "222222", IssuedAt: time.Now()}, time.Minute))

	deleted, err := store.CompareAndDelete(ctx, key, stale)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "222222", got.Code)
}
