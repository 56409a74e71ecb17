package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"shop-account/internal/data/entity"
	"shop-account/internal/data/secretstore"
)

const DefaultLength = 6

// Generator produces numeric one-time codes and binds them to an
// identity and purpose in the secret store.
type Generator struct {
	store  secretstore.Store
	length int
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

func NewGenerator(store secretstore.Store, length int, validity time.Duration, log *zap.Logger) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{
		store:  store,
		length: length,
		// Server-side expiry is a janitor only; the verifier enforces the
		// validity window from issued_at.
		ttl: validity + time.Minute,
		now: time.Now,
		log: log,
	}
}

// Generate returns a uniformly distributed zero-padded numeric code.
// Leading zeros are as likely as any other digit.
func (g *Generator) Generate() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", g.length, n), nil
}

// Issue stores the code for (email, purpose), overwriting any prior
// pending code for that key.
func (g *Generator) Issue(ctx context.Context, email string, purpose entity.OTPPurpose, code string) error {
	pending := &entity.PendingOTP{
		Code:     code,
		IssuedAt: g.now(),
	}

	key := secretstore.Key(purpose, email)
	if err := g.store.Set(ctx, key, pending, g.ttl); err != nil {
		g.log.Error("Failed to issue OTP",
			zap.Error(err),
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
		)
		return fmt.Errorf("issue otp for %s: %w", email, err)
	}

	return nil
}
