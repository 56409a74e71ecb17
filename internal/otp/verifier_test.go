package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-account/internal/data/entity"
	"shop-account/internal/data/secretstore"
	"shop-account/pkg/apperr"
)

func issueAt(t *testing.T, store secretstore.Store, email string, purpose entity.OTPPurpose, code string, issued time.Time) {
	t.Helper()
	g := NewGenerator(store, 6, DefaultValidity, zap.NewNop())
	g.now = func() time.Time { return issued }
	require.NoError(t, g.Issue(context.Background(), email, purpose, code))
}

func TestVerifyNotFound(t *testing.T) {
	v := NewVerifier(newTestStore(t), DefaultValidity, zap.NewNop())

	err := v.Verify(context.Background(), "a@x.com", entity.PurposeRegistration, "123456", true)
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)
}

func TestVerifyExpired(t *testing.T) {
	store := newTestStore(t)
	issued := time.Now()
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "123456", issued)

	v := NewVerifier(store, DefaultValidity, zap.NewNop())
	v.now = func() time.Time { return issued.Add(5*time.Minute + time.Second) }

	err := v.Verify(context.Background(), "a@x.com", entity.PurposeRegistration, "123456", true)
	assert.ErrorIs(t, err, apperr.ErrOTPExpired)

	// Expiry detection force-deletes the entry.
	pending, err := store.Get(context.Background(), secretstore.Key(entity.PurposeRegistration, "a@x.com"))
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestVerifyJustInsideWindow(t *testing.T) {
	store := newTestStore(t)
	issued := time.Now()
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "123456", issued)

	v := NewVerifier(store, DefaultValidity, zap.NewNop())
	v.now = func() time.Time { return issued.Add(4*time.Minute + 59*time.Second) }

	err := v.Verify(context.Background(), "a@x.com", entity.PurposeRegistration, "123456", true)
	assert.NoError(t, err)
}

func TestVerifyMismatchKeepsEntry(t *testing.T) {
	store := newTestStore(t)
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "123456", time.Now())

	v := NewVerifier(store, DefaultValidity, zap.NewNop())
	ctx := context.Background()

	err := v.Verify(ctx, "a@x.com", entity.PurposeRegistration, "654321", true)
	assert.ErrorIs(t, err, apperr.ErrOTPMismatch)

	// Retry with the right code still works within the window.
	assert.NoError(t, v.Verify(ctx, "a@x.com", entity.PurposeRegistration, "123456", true))
}

func TestVerifyConsumeIsSingleUse(t *testing.T) {
	store := newTestStore(t)
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "123456", time.Now())

	v := NewVerifier(store, DefaultValidity, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, v.Verify(ctx, "a@x.com", entity.PurposeRegistration, "123456", true))

	err := v.Verify(ctx, "a@x.com", entity.PurposeRegistration, "123456", true)
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)
}

func TestVerifyWithoutConsumeKeepsEntry(t *testing.T) {
	store := newTestStore(t)
	issueAt(t, store, "a@x.com", entity.PurposeForgotPassword, "654321", time.Now())

	v := NewVerifier(store, DefaultValidity, zap.NewNop())
	ctx := context.Background()

	// Two-phase flow: pre-verify leaves the code live, commit consumes it.
	require.NoError(t, v.Verify(ctx, "a@x.com", entity.PurposeForgotPassword, "654321", false))
	require.NoError(t, v.Verify(ctx, "a@x.com", entity.PurposeForgotPassword, "654321", false))
	require.NoError(t, v.Verify(ctx, "a@x.com", entity.PurposeForgotPassword, "654321", true))

	err := v.Verify(ctx, "a@x.com", entity.PurposeForgotPassword, "654321", true)
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)
}

func TestVerifyAfterReissue(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "111111", now)
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "222222", now)

	v := NewVerifier(store, DefaultValidity, zap.NewNop())
	ctx := context.Background()

	// Only the most recently issued code verifies.
	err := v.Verify(ctx, "a@x.com", entity.PurposeRegistration, "111111", true)
	assert.ErrorIs(t, err, apperr.ErrOTPMismatch)

	assert.NoError(t, v.Verify(ctx, "a@x.com", entity.PurposeRegistration, "222222", true))
}

func TestVerifyPurposeIsolation(t *testing.T) {
	store := newTestStore(t)
	issueAt(t, store, "a@x.com", entity.PurposeRegistration, "123456", time.Now())

	v := NewVerifier(store, DefaultValidity, zap.NewNop())

	// A registration code cannot be replayed in the reset flow.
	err := v.Verify(context.Background(), "a@x.com", entity.PurposeForgotPassword, "123456", true)
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)
}
