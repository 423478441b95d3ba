package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guardian-gate/internal/domain"
	"guardian-gate/internal/service"
)

const serverErrorMessage = "Server Error"

// envelope es el formato común de todas las respuestas.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	User    *domain.UserSummary `json:"user,omitempty"`
	Token   string              `json:"token,omitempty"`
}

// errorMessages permite a cada endpoint reemplazar el mensaje por defecto de
// un error conocido.
type errorMessages map[error]string

type errorMapping struct {
	err     error
	status  int
	message string
}

var knownErrors = []errorMapping{
	{service.ErrValidation, http.StatusBadRequest, "Please provide all required fields"},
	{service.ErrPasswordMismatch, http.StatusBadRequest, "Passwords do not match"},
	{service.ErrDuplicateEmail, http.StatusBadRequest, "User already exists with this email"},
	{service.ErrAlreadyVerified, http.StatusBadRequest, "Email is already verified"},
	{service.ErrInvalidOrExpiredCode, http.StatusBadRequest, "Invalid or expired code"},
	{service.ErrUserNotFound, http.StatusNotFound, "No account found with this email"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{service.ErrNotVerified, http.StatusUnauthorized, "Please verify your email address first. Check your inbox for the verification code."},
	{service.ErrEmailMismatch, http.StatusUnauthorized, "Email does not match"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "Not authorized, please log in"},
}

func summaryOf(user domain.User) *domain.UserSummary {
	s := user.Summary()
	return &s
}

func respondOK(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: true, Message: message})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message})
}

// respondError traduce errores del servicio a status y mensaje. Los errores no
// reconocidos se registran y salen como 500 genérico.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error, overrides errorMessages) {
	for _, m := range knownErrors {
		if !errors.Is(err, m.err) {
			continue
		}
		message := m.message
		if custom, ok := overrides[m.err]; ok {
			message = custom
		}
		respondFail(c, m.status, message)
		return
	}
	logger.Error(op+" failed", zap.Error(err))
	respondFail(c, http.StatusInternalServerError, serverErrorMessage)
}
