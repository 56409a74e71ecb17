package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-account/internal/data/repository"
	"shop-account/internal/dto/request"
	"shop-account/internal/notify"
	"shop-account/pkg/apperr"
)

func TestGetProfile(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	auth := register(t, svc, "budi", "budi@example.com", "rahasia1")

	profile, err := svc.User.GetProfile(ctx, auth.UserID)
	require.NoError(t, err)
	assert.Equal(t, "budi", profile.Username)
	assert.Equal(t, "budi@example.com", profile.Email)
	assert.True(t, profile.IsActive)
}

func TestGetProfileInvalidID(t *testing.T) {
	svc := NewUserService(repository.NewMemoryUserRepository(), zap.NewNop())

	_, err := svc.GetProfile(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.GetProfile(context.Background(), "417595c6-5add-4e37-bc14-9bbc83700a9e")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetAllUsersPagination(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	register(t, svc, "user01", "user01@example.com", "rahasia1")
	register(t, svc, "user02", "user02@example.com", "rahasia1")
	register(t, svc, "user03", "user03@example.com", "rahasia1")

	page, err := svc.User.GetAllUsers(ctx, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestDeactivateUser(t *testing.T) {
	svc, _ := newTestService(t, notify.DeliveryReturn)
	ctx := context.Background()

	auth := register(t, svc, "budi", "budi@example.com", "rahasia1")

	require.NoError(t, svc.User.DeactivateUser(ctx, auth.UserID))

	// The row survives; only login is shut off.
	profile, err := svc.User.GetProfile(ctx, auth.UserID)
	require.NoError(t, err)
	assert.False(t, profile.IsActive)

	_, err = svc.Auth.Login(ctx, &request.LoginRequest{
		Email:    "budi@example.com",
		Password: "rahasia1",
	})
	assert.ErrorIs(t, err, apperr.ErrAccountDeactivated)
}
