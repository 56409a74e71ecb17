package wire

import (
	"shop-account/internal/adaptor"
	"shop-account/internal/data/repository"
	"shop-account/pkg/middleware"
	"shop-account/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireUser configures user management routes with role-based access control
func wireUser(
	r chi.Router,
	userHandler *adaptor.UserHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED USER ROUTES ====================
	// User profile - requires authentication
	r.With(middleware.AuthSession(repo, log)).Get("/api/user/profile", userHandler.GetProfile)

	// ==================== ADMIN ROUTES ====================
	// Admin user management - requires both authentication AND admin role
	r.With(
		middleware.AuthSession(repo, log), // Check valid session
		middleware.Admin(log),             // Check admin role
	).Route("/api/admin/users", func(r chi.Router) {
		r.Get("/", userHandler.GetAllUsers)             // GET /api/admin/users?page=1&per_page=10
		r.Delete("/{id}", userHandler.DeactivateUser)   // DELETE /api/admin/users/{user-id}
	})
}
