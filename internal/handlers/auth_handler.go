package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/middleware"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/internal/services"
	"github.com/slotline/booking-backend/internal/utils"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth     *services.AuthService
	sessions *services.SessionService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.auth.SignUp(&req, utils.GetRealIP(c), utils.GetUserAgent(c))
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created. Check your email for a verification code.",
		"user":    user,
	})
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.auth.SignIn(&req, utils.GetRealIP(c), utils.GetUserAgent(c))
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	h.sessions.Touch(resp.User.ID, utils.GetUserAgent(c), utils.GetRealIP(c))
	c.JSON(http.StatusOK, resp)
}

// VerifyOTP handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.auth.VerifyEmail(&req, utils.GetRealIP(c), utils.GetUserAgent(c))
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	h.sessions.Touch(resp.User.ID, utils.GetUserAgent(c), utils.GetRealIP(c))
	c.JSON(http.StatusOK, resp)
}

// ResendOTP handles POST /api/v1/auth/resend-otp
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req models.RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.auth.ResendOTP(req.Email, utils.GetRealIP(c), utils.GetUserAgent(c)); err != nil {
		h.writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A new code is on its way."})
}

// RequestRecovery handles POST /api/v1/auth/recovery
func (h *AuthHandler) RequestRecovery(c *gin.Context) {
	var req models.RecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.auth.RequestRecovery(req.Email, utils.GetRealIP(c), utils.GetUserAgent(c)); err != nil {
		h.writeAuthError(c, err)
		return
	}

	// Same response whether or not the account exists
	c.JSON(http.StatusOK, gin.H{
		"message": "If that address is registered, a recovery code has been sent.",
	})
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.auth.ResetPassword(&req, utils.GetRealIP(c), utils.GetUserAgent(c)); err != nil {
		h.writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated. Please sign in again."})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tokens, err := h.auth.Refresh(req.RefreshToken, utils.GetRealIP(c), utils.GetUserAgent(c))
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// SignOutRequest is the payload for signing out
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req SignOutRequest
	c.ShouldBindJSON(&req) // body is optional

	if err := h.auth.SignOut(userCtx.UserID, req.RefreshToken, req.All, utils.GetRealIP(c), utils.GetUserAgent(c)); err != nil {
		internalError(c, "Failed to sign out")
		return
	}

	if err := h.sessions.EndSessions(userCtx.UserID); err != nil {
		internalError(c, "Failed to end sessions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// writeAuthError maps auth service errors onto HTTP responses
func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	var rateLimitErr *services.RateLimitError
	switch {
	case errors.As(err, &rateLimitErr):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "rate_limited",
			Message: rateLimitErr.Message,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	case errors.Is(err, services.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "email_not_verified",
			Message: "Verify your email address before signing in",
			Code:    "EMAIL_NOT_VERIFIED",
		})
	case errors.Is(err, services.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "account_disabled",
			Message: "This account has been disabled",
		})
	case errors.Is(err, services.ErrRefreshTokenInvalid):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Refresh token is invalid or expired",
		})
	case errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrNoOTPFound),
		errors.Is(err, services.ErrOTPAlreadyUsed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_otp",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrMaxAttemptsExceeded):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "too_many_attempts",
			Message: "Too many failed attempts. Request a new code.",
		})
	case errors.Is(err, database.ErrDuplicateEmail):
		conflict(c, "An account with this email already exists")
	default:
		badRequest(c, err.Error())
	}
}
