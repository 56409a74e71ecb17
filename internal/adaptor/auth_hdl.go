package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"shop-account/internal/dto/request"
	"shop-account/internal/usecase"
	"shop-account/pkg/apperr"
	"shop-account/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log,
	}
}

// SendRegistrationOTP handles POST /api/register/otp
func (h *AuthHandler) SendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req request.SendRegistrationOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.SendRegistrationOTP(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "send registration OTP")
		return
	}

	utils.ResponseSuccess(w, "OTP sent", resp)
}

// ConfirmRegistration handles POST /api/register
func (h *AuthHandler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	var req request.ConfirmRegistrationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.ConfirmRegistration(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "confirm registration")
		return
	}

	utils.ResponseCreated(w, "Registration successful", resp)
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}

// Logout handles POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		utils.ResponseBadRequest(w, "No token provided", nil)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		h.handleServiceError(w, err, "logout")
		return
	}

	utils.ResponseSuccess(w, "Logout successful", nil)
}

// RequestPasswordReset handles POST /api/password/forgot
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req request.RequestPasswordResetRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.RequestPasswordReset(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "request password reset")
		return
	}

	utils.ResponseSuccess(w, "Reset OTP sent", resp)
}

// VerifyResetOTP handles POST /api/password/verify-otp
func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyResetOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.VerifyResetOTP(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "verify reset OTP")
		return
	}

	utils.ResponseSuccess(w, "OTP verified", nil)
}

// ResetPassword handles POST /api/password/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req request.ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "reset password")
		return
	}

	utils.ResponseSuccess(w, "Password reset successful", nil)
}

// ChangePassword handles POST /api/password/change
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	token, ok := utils.GetTokenFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.ChangePassword(r.Context(), token, &req); err != nil {
		h.handleServiceError(w, err, "change password")
		return
	}

	utils.ResponseSuccess(w, "Password changed successfully", nil)
}

// RestoreSession handles GET /api/session
func (h *AuthHandler) RestoreSession(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		utils.ResponseUnauthorized(w, "No token provided")
		return
	}

	resp, err := h.service.RestoreSession(r.Context(), token)
	if err != nil {
		h.handleServiceError(w, err, "restore session")
		return
	}

	utils.ResponseSuccess(w, "Session restored", resp)
}

// handleServiceError maps typed service errors to HTTP responses. OTP and
// credential failures share generic messages so responses cannot be used
// to enumerate accounts.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var dup *apperr.DuplicateIdentityError

	switch {
	case errors.As(err, &dup):
		h.log.Warn(operation+" failed - duplicate identity",
			zap.String("field", string(dup.Field)))
		utils.ResponseBadRequest(w, dup.Error(), map[string]string{"field": string(dup.Field)})

	case errors.Is(err, apperr.ErrInvalidCredentials):
		h.log.Warn(operation + " failed - invalid credentials")
		utils.ResponseUnauthorized(w, "Invalid credentials")

	case errors.Is(err, apperr.ErrAccountDeactivated):
		h.log.Warn(operation + " failed - account deactivated")
		utils.ResponseForbidden(w, "Account is deactivated")

	case errors.Is(err, apperr.ErrEmailNotFound):
		h.log.Warn(operation + " failed - email not found")
		utils.ResponseNotFound(w, "Email not found")

	case errors.Is(err, apperr.ErrOTPNotFound),
		errors.Is(err, apperr.ErrOTPExpired),
		errors.Is(err, apperr.ErrOTPMismatch):
		h.log.Warn(operation+" failed - OTP rejected", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid or expired code", nil)

	case errors.Is(err, apperr.ErrNotAuthenticated):
		h.log.Warn(operation + " failed - not authenticated")
		utils.ResponseUnauthorized(w, "Authentication required")

	case strings.Contains(err.Error(), "validation failed"):
		h.log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// bearerToken extracts the opaque session token from the Authorization
// header. Format: "Bearer <token-uuid>".
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		return "", false
	}

	return token, true
}
