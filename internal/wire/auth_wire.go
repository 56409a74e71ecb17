package wire

import (
	"shop-account/internal/adaptor"
	"shop-account/internal/data/repository"
	"shop-account/pkg/middleware"
	"shop-account/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// Registration is two-phase: send OTP, then confirm with the code
	r.Post("/api/register/otp", authHandler.SendRegistrationOTP)
	r.Post("/api/register", authHandler.ConfirmRegistration)
	r.Post("/api/login", authHandler.Login)

	// Forgot-password flow: request code, pre-verify, then commit
	r.Post("/api/password/forgot", authHandler.RequestPasswordReset)
	r.Post("/api/password/verify-otp", authHandler.VerifyResetOTP)
	r.Post("/api/password/reset", authHandler.ResetPassword)

	// Session restore at app start (presence-based)
	r.Get("/api/session", authHandler.RestoreSession)

	// ==================== PROTECTED ROUTES ====================
	r.With(middleware.AuthSession(repo, log)).Post("/api/logout", authHandler.Logout)
	r.With(middleware.AuthSession(repo, log)).Post("/api/password/change", authHandler.ChangePassword)
}
