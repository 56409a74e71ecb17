package secretstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shop-account/internal/data/entity"
)

// Store is short-lived key/value storage for pending one-time codes.
// Get returns nil, nil when the key is absent. CompareAndDelete removes
// the key only if it still holds the given value, atomically, so a racing
// consumer observes absence rather than stale data.
type Store interface {
	Get(ctx context.Context, key string) (*entity.PendingOTP, error)
	Set(ctx context.Context, key string, otp *entity.PendingOTP, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	CompareAndDelete(ctx context.Context, key string, otp *entity.PendingOTP) (bool, error)
}

// Key namespaces a pending code by purpose so a registration code can
// never be replayed in the forgot-password flow.
func Key(purpose entity.OTPPurpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

// compareAndDeleteScript deletes the key only while it still holds the
// exact payload the caller read.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(client *redis.Client, log *zap.Logger) Store {
	return &redisStore{
		client: client,
		log:    log.With(zap.String("store", "secret")),
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (*entity.PendingOTP, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("Failed to read pending code", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("get secret %s: %w", key, err)
	}

	var otp entity.PendingOTP
	if err := json.Unmarshal(payload, &otp); err != nil {
		s.log.Error("Failed to decode pending code", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("decode secret %s: %w", key, err)
	}

	return &otp, nil
}

func (s *redisStore) Set(ctx context.Context, key string, otp *entity.PendingOTP, ttl time.Duration) error {
	payload, err := json.Marshal(otp)
	if err != nil {
		return fmt.Errorf("encode secret %s: %w", key, err)
	}

	// SET overwrites any prior pending code for the key.
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.log.Error("Failed to store pending code", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("set secret %s: %w", key, err)
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Error("Failed to delete pending code", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("delete secret %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key string, otp *entity.PendingOTP) (bool, error) {
	payload, err := json.Marshal(otp)
	if err != nil {
		return false, fmt.Errorf("encode secret %s: %w", key, err)
	}

	deleted, err := compareAndDeleteScript.Run(ctx, s.client, []string{key}, string(payload)).Int()
	if err != nil {
		s.log.Error("Failed to consume pending code", zap.Error(err), zap.String("key", key))
		return false, fmt.Errorf("consume secret %s: %w", key, err)
	}

	return deleted == 1, nil
}
