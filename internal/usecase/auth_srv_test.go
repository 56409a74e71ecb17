package usecase

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-account/internal/data/repository"
	"shop-account/internal/data/secretstore"
	"shop-account/internal/dto/request"
	"shop-account/internal/dto/response"
	"shop-account/internal/notify"
	"shop-account/pkg/apperr"
	"shop-account/pkg/utils"
)

func testConfig(delivery string) *utils.Config {
	return &utils.Config{
		OTP: utils.OTPConfig{
			ExpiryMinutes: 5,
			Length:        6,
			Delivery:      delivery,
		},
		Session: utils.SessionConfig{ExpiryHours: 24},
		Hash:    utils.HashConfig{Algo: "sha256"},
	}
}

func newTestService(t *testing.T, delivery string) (*Service, *repository.Repository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := secretstore.NewRedisStore(client, zap.NewNop())

	repo := &repository.Repository{
		User:    repository.NewMemoryUserRepository(),
		Session: repository.NewMemorySessionRepository(),
	}

	svc, err := NewService(repo, store, testConfig(delivery), zap.NewNop())
	require.NoError(t, err)
	return svc, repo
}

func register(t *testing.T, svc *Service, username, email, password string) *response.AuthResponse {
	t.Helper()
	ctx := context.Background()

	sent, err := svc.Auth.SendRegistrationOTP(ctx, &request.SendRegistrationOTPRequest{
		Username: username,
		Email:    email,
	})
	require.NoError(t, err)
	require.Len(t, sent.Code, 6)

	auth, err := svc.Auth.ConfirmRegistration(ctx, &request.ConfirmRegistrationRequest{
		Username: username,
		Email:    email,
		Password: password,
		FullName: "Test Person",
		OTP:      sent.Code,
	})
	require.NoError(t, err)
	return auth
}

func TestRegistrationRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	auth := register(t, svc, "budi", "budi@example.com", "rahasia1")

	// Implicit login: a live session comes back with the new account.
	assert.Equal(t, "budi@example.com", auth.Email)
	assert.Equal(t, "budi", auth.Username)
	require.NotEmpty(t, auth.Token)

	restored, err := svc.Auth.RestoreSession(ctx, auth.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.UserID, restored.UserID)

	require.NoError(t, svc.Auth.Logout(ctx, auth.Token))

	_, err = svc.Auth.RestoreSession(ctx, auth.Token)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	relogin, err := svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "rahasia1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, auth.Token, relogin.Token)
}

func TestRegistrationOTPIsSingleUse(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	sent, err := svc.Auth.SendRegistrationOTP(ctx, &request.SendRegistrationOTPRequest{
		Username: "budi",
		Email:    "budi@example.com",
	})
	require.NoError(t, err)

	confirm := &request.ConfirmRegistrationRequest{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "rahasia1",
		FullName: "Budi Santoso",
		OTP:      sent.Code,
	}
	_, err = svc.Auth.ConfirmRegistration(ctx, confirm)
	require.NoError(t, err)

	_, err = svc.Auth.ConfirmRegistration(ctx, confirm)
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)
}

func TestRegistrationWrongOTP(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	sent, err := svc.Auth.SendRegistrationOTP(ctx, &request.SendRegistrationOTPRequest{
		Username: "budi",
		Email:    "budi@example.com",
	})
	require.NoError(t, err)

	wrong := "000000"
	if wrong == sent.Code {
		wrong = "000001"
	}
	_, err = svc.Auth.ConfirmRegistration(ctx, &request.ConfirmRegistrationRequest{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "rahasia1",
		FullName: "Budi Santoso",
		OTP:      wrong,
	})
	assert.ErrorIs(t, err, apperr.ErrOTPMismatch)

	// Mismatch does not burn the pending code.
	_, err = svc.Auth.ConfirmRegistration(ctx, &request.ConfirmRegistrationRequest{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "rahasia1",
		FullName: "Budi Santoso",
		OTP:      sent.Code,
	})
	assert.NoError(t, err)
}

func TestRegistrationWithoutOTP(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)

	_, err := svc.Auth.ConfirmRegistration(context.Background(), &request.ConfirmRegistrationRequest{
		Username: "budi",
		Email:    "budi@example.com",
		Password: "rahasia1",
		FullName: "Budi Santoso",
		OTP:      "123456",
	})
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)
}

func TestRegistrationDuplicateIdentity(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	register(t, svc, "budi", "budi@example.com", "rahasia1")

	_, err := svc.Auth.SendRegistrationOTP(ctx, &request.SendRegistrationOTPRequest{
		Username: "lain",
		Email:    "budi@example.com",
	})
	var dup *apperr.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, apperr.FieldEmail, dup.Field)

	_, err = svc.Auth.SendRegistrationOTP(ctx, &request.SendRegistrationOTPRequest{
		Username: "budi",
		Email:    "lain@example.com",
	})
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, apperr.FieldUsername, dup.Field)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	register(t, svc, "budi", "budi@example.com", "rahasia1")

	// Wrong password and unknown email fail identically.
	_, err := svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "salah123",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "ghost@example.com",
		Password: "rahasia1",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	svc, repo := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	register(t, svc, "budi", "budi@example.com", "rahasia1")

	user, err := repo.User.FindByEmail(ctx, "budi@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.User.Deactivate(ctx, user.ID))

	_, err = svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "rahasia1",
	})
	assert.ErrorIs(t, err, apperr.ErrAccountDeactivated)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	auth := register(t, svc, "budi", "budi@example.com", "rahasia1")

	require.NoError(t, svc.Auth.Logout(ctx, auth.Token))
	require.NoError(t, svc.Auth.Logout(ctx, auth.Token))
	require.NoError(t, svc.Auth.Logout(ctx, "never-issued"))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	auth := register(t, svc, "budi", "budi@example.com", "rahasia1")

	_, err := svc.Auth.RequestPasswordReset(ctx, &request.RequestPasswordResetRequest{
		Email: "ghost@example.com",
	})
	assert.ErrorIs(t, err, apperr.ErrEmailNotFound)

	sent, err := svc.Auth.RequestPasswordReset(ctx, &request.RequestPasswordResetRequest{
		Email: "budi@example.com",
	})
	require.NoError(t, err)
	require.Len(t, sent.Code, 6)

	wrong := "000000"
	if wrong == sent.Code {
		wrong = "000001"
	}
	err = svc.Auth.VerifyResetOTP(ctx, &request.VerifyResetOTPRequest{
		Email: "budi@example.com",
		OTP:   wrong,
	})
	assert.ErrorIs(t, err, apperr.ErrOTPMismatch)

	// Pre-verification does not consume; it can run more than once.
	for i := 0; i < 2; i++ {
		err = svc.Auth.VerifyResetOTP(ctx, &request.VerifyResetOTPRequest{
			Email: "budi@example.com",
			OTP:   sent.Code,
		})
		require.NoError(t, err)
	}

	err = svc.Auth.ResetPassword(ctx, &request.ResetPasswordRequest{
		Email:       "budi@example.com",
		NewPassword: "baru1234",
		OTP:         sent.Code,
	})
	require.NoError(t, err)

	// The commit consumed the code.
	err = svc.Auth.ResetPassword(ctx, &request.ResetPasswordRequest{
		Email:       "budi@example.com",
		NewPassword: "lain1234",
		OTP:         sent.Code,
	})
	assert.ErrorIs(t, err, apperr.ErrOTPNotFound)

	// Old password is dead, new one works, old sessions are revoked.
	_, err = svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "rahasia1",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Auth.RestoreSession(ctx, auth.Token)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "baru1234",
	})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	auth := register(t, svc, "budi", "budi@example.com", "rahasia1")

	err := svc.Auth.ChangePassword(ctx, "", &request.ChangePasswordRequest{
		CurrentPassword: "rahasia1",
		NewPassword:     "baru1234",
	})
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	err = svc.Auth.ChangePassword(ctx, auth.Token, &request.ChangePasswordRequest{
		CurrentPassword: "salah123",
		NewPassword:     "baru1234",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	err = svc.Auth.ChangePassword(ctx, auth.Token, &request.ChangePasswordRequest{
		CurrentPassword: "rahasia1",
		NewPassword:     "baru1234",
	})
	require.NoError(t, err)

	_, err = svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "baru1234",
	})
	assert.NoError(t, err)
}

func TestOTPCodeHiddenOutsideReturnMode(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryLog)

	sent, err := svc.Auth.SendRegistrationOTP(context.Background(), &request.SendRegistrationOTPRequest{
		Username: "budi",
		Email:    "budi@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, sent.Code)
}

func TestRestoreSessionUnknownToken(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)

	_, err := svc.Auth.RestoreSession(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = svc.Auth.RestoreSession(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}
