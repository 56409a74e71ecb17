package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-account/internal/data/entity"
	"shop-account/internal/data/repository"
	"shop-account/internal/dto/request"
	"shop-account/internal/dto/response"
	"shop-account/internal/notify"
	"shop-account/internal/otp"
	"shop-account/pkg/apperr"
	"shop-account/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	SendRegistrationOTP(ctx context.Context, req *request.SendRegistrationOTPRequest) (*response.SendOTPResponse, error)
	ConfirmRegistration(ctx context.Context, req *request.ConfirmRegistrationRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, req *request.RequestPasswordResetRequest) (*response.SendOTPResponse, error)
	VerifyResetOTP(ctx context.Context, req *request.VerifyResetOTPRequest) error
	ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, token string, req *request.ChangePasswordRequest) error
	RestoreSession(ctx context.Context, token string) (*response.AuthResponse, error)
}

type authService struct {
	repo      *repository.Repository
	generator *otp.Generator
	verifier  *otp.Verifier
	hasher    utils.Hasher
	sender    notify.Sender
	config    *utils.Config
	log       *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	generator *otp.Generator,
	verifier *otp.Verifier,
	hasher utils.Hasher,
	sender notify.Sender,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		generator: generator,
		verifier:  verifier,
		hasher:    hasher,
		sender:    sender,
		config:    config,
		log:       log,
	}
}

// SendRegistrationOTP starts the registration flow. No account row exists
// until the code is confirmed; the pending tuple stays with the caller.
func (s *authService) SendRegistrationOTP(ctx context.Context, req *request.SendRegistrationOTPRequest) (*response.SendOTPResponse, error) {
	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Send registration OTP validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Cek email/username sudah terdaftar (single existence query)
	existing, err := s.repo.User.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		s.log.Error("Failed to check identity", zap.Error(err), zap.String("email", req.Email))
		return nil, fmt.Errorf("%w: check identity: %v", apperr.ErrRepository, err)
	}
	if existing != nil {
		if existing.Email == req.Email {
			return nil, apperr.DuplicateIdentity(apperr.FieldEmail)
		}
		return nil, apperr.DuplicateIdentity(apperr.FieldUsername)
	}

	// 3. Generate + issue OTP (overwrites a prior pending code)
	code, err := s.generator.Generate()
	if err != nil {
		s.log.Error("Failed to generate OTP", zap.Error(err))
		return nil, fmt.Errorf("generate code: %w", err)
	}
	if err := s.generator.Issue(ctx, req.Email, entity.PurposeRegistration, code); err != nil {
		return nil, fmt.Errorf("%w: issue code: %v", apperr.ErrRepository, err)
	}

	// 4. Deliver out of band
	if err := s.sender.Send(ctx, req.Email, entity.PurposeRegistration, code); err != nil {
		s.log.Error("Failed to deliver OTP", zap.Error(err), zap.String("email", req.Email))
		return nil, fmt.Errorf("deliver code: %w", err)
	}

	s.log.Info("Registration OTP issued", zap.String("email", req.Email))

	resp := &response.SendOTPResponse{}
	if s.config.OTP.Delivery == notify.DeliveryReturn {
		resp.Code = code
	}
	return resp, nil
}

// ConfirmRegistration consumes the pending code, creates the account, and
// performs an implicit login.
func (s *authService) ConfirmRegistration(ctx context.Context, req *request.ConfirmRegistrationRequest) (*response.AuthResponse, error) {
	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Confirm registration validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Verify + consume OTP
	if err := s.verifier.Verify(ctx, req.Email, entity.PurposeRegistration, req.OTP, true); err != nil {
		s.log.Warn("Registration OTP rejected", zap.Error(err), zap.String("email", req.Email))
		return nil, err
	}

	// 3. Hash password
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	// 4. Create user. A uniqueness race here surfaces as DuplicateIdentity
	// from the insert even though the pre-check passed.
	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:       req.Username,
		Email:          req.Email,
		PasswordDigest: digest,
		FullName:       req.FullName,
		Phone:          req.Phone,
		Role:           entity.RoleUser,
		IsActive:       true,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrDuplicateIdentity) {
			return nil, err
		}
		// The OTP is already consumed at this point. Recoverable by
		// resending a fresh code and confirming again.
		s.log.Error("Failed to create account after OTP consumption",
			zap.Error(err), zap.String("email", req.Email))
		return nil, fmt.Errorf("%w: create account: %v", apperr.ErrRepository, err)
	}

	// 5. Implicit login
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.log.Warn("Failed to create session after registration",
			zap.Error(err), zap.String("user_id", user.ID.String()))
		// Continue tanpa session
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return response.AuthToResponse(user, session), nil
}

// Login matches email and digest in a single repository lookup; the
// failure reason is deliberately not distinguishable by the caller.
func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Hash password
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	// 3. Single lookup by email + digest
	user, err := s.repo.User.FindByEmailAndDigest(ctx, req.Email, digest)
	if err != nil {
		s.log.Error("Failed to find user by credentials", zap.Error(err))
		return nil, fmt.Errorf("%w: find user: %v", apperr.ErrRepository, err)
	}
	if user == nil {
		s.log.Warn("Invalid credentials", zap.String("email", req.Email))
		return nil, apperr.ErrInvalidCredentials
	}

	// 4. Deactivated accounts reject login even with correct password
	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, apperr.ErrAccountDeactivated
	}

	// 5. Create session
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%w: create session: %v", apperr.ErrRepository, err)
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	return response.AuthToResponse(user, session), nil
}

// Logout clears the session unconditionally. Revoking a token that is
// already gone is not an error.
func (s *authService) Logout(ctx context.Context, token string) error {
	rows, err := s.repo.Session.Revoke(ctx, token)
	if err != nil {
		s.log.Error("Failed to revoke session", zap.Error(err))
		return nil
	}
	if rows == 0 {
		s.log.Debug("Logout with no live session", zap.String("token", token))
		return nil
	}

	s.log.Info("User logged out")
	return nil
}

// RequestPasswordReset issues a reset code. Unlike login, this flow does
// confirm account existence to the caller.
func (s *authService) RequestPasswordReset(ctx context.Context, req *request.RequestPasswordResetRequest) (*response.SendOTPResponse, error) {
	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Password reset request validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Find account
	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		s.log.Error("Failed to find user for reset", zap.Error(err), zap.String("email", req.Email))
		return nil, fmt.Errorf("%w: find user: %v", apperr.ErrRepository, err)
	}
	if user == nil {
		return nil, apperr.ErrEmailNotFound
	}

	// 3. Generate + issue OTP
	code, err := s.generator.Generate()
	if err != nil {
		s.log.Error("Failed to generate OTP", zap.Error(err))
		return nil, fmt.Errorf("generate code: %w", err)
	}
	if err := s.generator.Issue(ctx, req.Email, entity.PurposeForgotPassword, code); err != nil {
		return nil, fmt.Errorf("%w: issue code: %v", apperr.ErrRepository, err)
	}

	// 4. Deliver out of band
	if err := s.sender.Send(ctx, req.Email, entity.PurposeForgotPassword, code); err != nil {
		s.log.Error("Failed to deliver OTP", zap.Error(err), zap.String("email", req.Email))
		return nil, fmt.Errorf("deliver code: %w", err)
	}

	s.log.Info("Password reset OTP issued", zap.String("email", req.Email))

	resp := &response.SendOTPResponse{}
	if s.config.OTP.Delivery == notify.DeliveryReturn {
		resp.Code = code
	}
	return resp, nil
}

// VerifyResetOTP checks the code without consuming it, so the UI can show
// the password form while the same code stays valid for the final commit.
func (s *authService) VerifyResetOTP(ctx context.Context, req *request.VerifyResetOTPRequest) error {
	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Verify reset OTP validation failed", zap.Any("errors", errs))
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Verify without consuming
	if err := s.verifier.Verify(ctx, req.Email, entity.PurposeForgotPassword, req.OTP, false); err != nil {
		s.log.Warn("Reset OTP rejected", zap.Error(err), zap.String("email", req.Email))
		return err
	}

	return nil
}

// ResetPassword re-verifies the code, consuming it this time, and commits
// the new digest.
func (s *authService) ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error {
	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Reset password validation failed", zap.Any("errors", errs))
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 2. Verify + consume; the code must still be valid at commit time
	if err := s.verifier.Verify(ctx, req.Email, entity.PurposeForgotPassword, req.OTP, true); err != nil {
		s.log.Warn("Reset OTP rejected at commit", zap.Error(err), zap.String("email", req.Email))
		return err
	}

	// 3. Hash new password
	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return err
	}

	// 4. Update digest
	rows, err := s.repo.User.UpdatePasswordDigestByEmail(ctx, req.Email, digest)
	if err != nil {
		return fmt.Errorf("%w: update digest: %v", apperr.ErrRepository, err)
	}
	if rows == 0 {
		// Identity vanished between steps.
		s.log.Error("Password reset hit missing account", zap.String("email", req.Email))
		return fmt.Errorf("%w: no account updated", apperr.ErrRepository)
	}

	// 5. Revoke existing sessions so stolen tokens die with the old password
	if user, err := s.repo.User.FindByEmail(ctx, req.Email); err == nil && user != nil {
		if err := s.repo.Session.RevokeAllUserSessions(ctx, user.ID); err != nil {
			s.log.Warn("Failed to revoke sessions after reset",
				zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}

	s.log.Info("Password reset", zap.String("email", req.Email))
	return nil
}

// ChangePassword is the authenticated path: no OTP, but a live session
// and the current password are both required.
func (s *authService) ChangePassword(ctx context.Context, token string, req *request.ChangePasswordRequest) error {
	// 1. Require an active session
	if token == "" {
		return apperr.ErrNotAuthenticated
	}
	session, err := s.repo.Session.FindValidSession(ctx, token)
	if err != nil {
		s.log.Error("Failed to find session", zap.Error(err))
		return fmt.Errorf("%w: find session: %v", apperr.ErrRepository, err)
	}
	if session == nil {
		return apperr.ErrNotAuthenticated
	}

	// 2. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Change password validation failed", zap.Any("errors", errs))
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 3. Compare current password digest
	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", session.UserID.String()))
		return fmt.Errorf("%w: find user: %v", apperr.ErrRepository, err)
	}
	if user == nil {
		return fmt.Errorf("%w: session user missing", apperr.ErrRepository)
	}

	currentDigest, err := s.hasher.Hash(req.CurrentPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return err
	}
	if currentDigest != user.PasswordDigest {
		s.log.Warn("Change password with wrong current password",
			zap.String("user_id", user.ID.String()))
		return apperr.ErrInvalidCredentials
	}

	// 4. Update digest
	newDigest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return err
	}

	rows, err := s.repo.User.UpdatePasswordDigest(ctx, user.ID, newDigest)
	if err != nil {
		return fmt.Errorf("%w: update digest: %v", apperr.ErrRepository, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: no account updated", apperr.ErrRepository)
	}

	s.log.Info("Password changed", zap.String("user_id", user.ID.String()))
	return nil
}

// RestoreSession rebuilds the authenticated state from a persisted token
// at app start. Purely presence-based: no freshness check beyond expiry.
func (s *authService) RestoreSession(ctx context.Context, token string) (*response.AuthResponse, error) {
	if token == "" {
		return nil, apperr.ErrNotAuthenticated
	}

	session, err := s.repo.Session.FindValidSession(ctx, token)
	if err != nil {
		s.log.Error("Failed to restore session", zap.Error(err))
		return nil, fmt.Errorf("%w: find session: %v", apperr.ErrRepository, err)
	}
	if session == nil {
		return nil, apperr.ErrNotAuthenticated
	}

	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		s.log.Error("Failed to find session user", zap.Error(err))
		return nil, fmt.Errorf("%w: find user: %v", apperr.ErrRepository, err)
	}
	if user == nil {
		return nil, apperr.ErrNotAuthenticated
	}

	return response.AuthToResponse(user, session), nil
}

// ==================== HELPER METHODS ====================

func (s *authService) createSession(ctx context.Context, userID uuid.UUID) (*entity.Session, error) {
	expiry := time.Duration(s.config.Session.ExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		UserID:    userID,
		Token:     uuid.New(),
		ExpiresAt: time.Now().Add(expiry),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}
