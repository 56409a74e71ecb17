package otp

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shop-account/internal/data/entity"
	"shop-account/internal/data/secretstore"
	"shop-account/pkg/apperr"
)

// DefaultValidity is how long an issued code stays usable.
const DefaultValidity = 5 * time.Minute

// Verifier checks a submitted code against the pending one for an
// identity and purpose.
type Verifier struct {
	store    secretstore.Store
	validity time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewVerifier(store secretstore.Store, validity time.Duration, log *zap.Logger) *Verifier {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Verifier{
		store:    store,
		validity: validity,
		now:      time.Now,
		log:      log,
	}
}

// Verify checks submitted against the pending code for (email, purpose).
// With consume=true a match atomically erases the entry, so the same code
// cannot be used twice; a mismatch never erases it, allowing retry within
// the validity window.
func (v *Verifier) Verify(ctx context.Context, email string, purpose entity.OTPPurpose, submitted string, consume bool) error {
	key := secretstore.Key(purpose, email)

	pending, err := v.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if pending == nil {
		return apperr.ErrOTPNotFound
	}

	if v.now().Sub(pending.IssuedAt) > v.validity {
		// Force-delete on expiry detection.
		if err := v.store.Delete(ctx, key); err != nil {
			v.log.Warn("Failed to delete expired OTP", zap.Error(err), zap.String("email", email))
		}
		return apperr.ErrOTPExpired
	}

	if submitted != pending.Code {
		return apperr.ErrOTPMismatch
	}

	if !consume {
		return nil
	}

	deleted, err := v.store.CompareAndDelete(ctx, key, pending)
	if err != nil {
		return err
	}
	if !deleted {
		// A concurrent consume or reissue won the race.
		return apperr.ErrOTPNotFound
	}

	return nil
}
