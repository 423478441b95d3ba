package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guardian-gate/internal/domain"
	"guardian-gate/internal/service"
)

const authUserKey = "auth_user"

// SessionAuthMiddleware valida el token de sesión (cookie o Bearer) y guarda el
// usuario en el contexto.
func SessionAuthMiddleware(logger *zap.Logger, sessions *service.SessionService, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil || auth == nil {
			logger.Error("session middleware not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: serverErrorMessage})
			return
		}

		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: "Not authorized, no token"})
			return
		}

		claims, err := sessions.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: "Not authorized, token failed"})
			return
		}

		user, err := auth.GetSelf(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: "Not authorized, user not found"})
				return
			}
			logger.Error("session user lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: serverErrorMessage})
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// CurrentUser obtiene el usuario autenticado desde el contexto.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

// sessionToken prioriza la cookie; si no existe usa Authorization: Bearer.
func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
