package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guardian-gate/internal/domain"
	"guardian-gate/internal/service"
)

const sessionCookieName = "token"

// CookieConfig controla cómo viaja el token de sesión en la cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// AuthHandler mantiene dependencias para los endpoints de /auth.
type AuthHandler struct {
	logger   *zap.Logger
	auth     *service.AuthService
	sessions *service.SessionService
	cookie   CookieConfig
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, sessions *service.SessionService, cookie CookieConfig) *AuthHandler {
	if cookie.TTL <= 0 {
		cookie.TTL = sessions.TTL()
	}
	return &AuthHandler{
		logger:   logger,
		auth:     auth,
		sessions: sessions,
		cookie:   cookie,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if !h.bind(c, &req, "register") {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "register", err, nil)
		return
	}

	c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "Registration successful! Please check your email for verification code.",
		User:    summaryOf(user),
	})
}

// VerifyEmail maneja POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req codeRequest
	if !h.bind(c, &req, "verify email") {
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		respondError(c, h.logger, "verify email", err, errorMessages{
			service.ErrInvalidOrExpiredCode: "Invalid or expired verification code",
		})
		return
	}
	h.startSession(c, user, "Email verified successfully")
}

// ResendVerification maneja POST /auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req, "resend verification") {
		return
	}
	if err := h.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, "resend verification", err, nil)
		return
	}
	respondOK(c, http.StatusOK, "Verification code sent to your email")
}

// SendLoginOTP maneja POST /auth/send-login-otp.
func (h *AuthHandler) SendLoginOTP(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !h.bind(c, &req, "send login otp") {
		return
	}
	user, err := h.auth.SendLoginOTP(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "send login otp", err, nil)
		return
	}
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Login code sent to your email",
		User:    summaryOf(user),
	})
}

// ResendLoginOTP maneja POST /auth/resend-login-otp.
func (h *AuthHandler) ResendLoginOTP(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req, "resend login otp") {
		return
	}
	if err := h.auth.ResendLoginOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, "resend login otp", err, nil)
		return
	}
	respondOK(c, http.StatusOK, "Login code sent to your email")
}

// VerifyLogin maneja POST /auth/verify-login.
func (h *AuthHandler) VerifyLogin(c *gin.Context) {
	var req codeRequest
	if !h.bind(c, &req, "verify login") {
		return
	}

	user, err := h.auth.VerifyLogin(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		respondError(c, h.logger, "verify login", err, errorMessages{
			service.ErrInvalidOrExpiredCode: "Invalid or expired login code",
		})
		return
	}
	h.startSession(c, user, "Login successful")
}

// ForgotPassword maneja POST /auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req, "forgot password") {
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, "forgot password", err, nil)
		return
	}
	respondOK(c, http.StatusOK, "Password reset code sent to your email")
}

// VerifyResetOTP maneja POST /auth/verify-reset-otp.
func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req codeRequest
	if !h.bind(c, &req, "verify reset otp") {
		return
	}
	if err := h.auth.VerifyResetOTP(c.Request.Context(), req.Email, req.Token); err != nil {
		respondError(c, h.logger, "verify reset otp", err, errorMessages{
			service.ErrInvalidOrExpiredCode: "Invalid or expired reset code",
		})
		return
	}
	respondOK(c, http.StatusOK, "OTP verified successfully")
}

// ResetPassword maneja POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required,email"`
		Token           string `json:"token" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if !h.bind(c, &req, "reset password") {
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:           req.Email,
		Code:            req.Token,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "reset password", err, errorMessages{
			service.ErrInvalidOrExpiredCode: "Invalid or expired reset code",
		})
		return
	}
	respondOK(c, http.StatusOK, "Password reset successfully")
}

// ChangePassword maneja POST /auth/change-password (autenticado).
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, h.logger, "change password", service.ErrUnauthenticated, nil)
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if !h.bind(c, &req, "change password") {
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "change password", err, errorMessages{
			service.ErrInvalidCredentials: "Current password is incorrect",
		})
		return
	}
	respondOK(c, http.StatusOK, "Password changed successfully")
}

// DeleteAccount maneja DELETE /auth/delete-account (autenticado).
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, h.logger, "delete account", service.ErrUnauthenticated, nil)
		return
	}
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !h.bind(c, &req, "delete account") {
		return
	}

	if err := h.auth.DeleteAccount(c.Request.Context(), user.ID, req.Email, req.Password); err != nil {
		respondError(c, h.logger, "delete account", err, errorMessages{
			service.ErrInvalidCredentials: "Password is incorrect",
			service.ErrUserNotFound:       "User not found",
		})
		return
	}
	h.clearSessionCookie(c)
	respondOK(c, http.StatusOK, "Account deleted successfully")
}

// Me maneja GET /auth/me (autenticado).
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, h.logger, "get self", service.ErrUnauthenticated, nil)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, User: summaryOf(user)})
}

// Logout maneja POST /auth/logout. Solo borra la cookie: el token no se revoca.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	respondOK(c, http.StatusOK, "Logged out successfully")
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type codeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

func (h *AuthHandler) bind(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid "+op+" request", zap.Error(err))
		respondFail(c, http.StatusBadRequest, "Please provide all required fields")
		return false
	}
	return true
}

func (h *AuthHandler) startSession(c *gin.Context, user domain.User, message string) {
	session, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error("session issue failed", zap.String("user_id", user.ID), zap.Error(err))
		respondFail(c, http.StatusInternalServerError, serverErrorMessage)
		return
	}
	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: message,
		User:    summaryOf(user),
		Token:   session.Token,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", h.cookie.Secure, true)
}
