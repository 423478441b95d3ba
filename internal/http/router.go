package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	healthH *HealthHandler,
	requireSession gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger), jsonContentTypeMiddleware())

	r.GET("/health", healthH.Health)

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/verify-email", authH.VerifyEmail)
	auth.POST("/resend-verification", authH.ResendVerification)
	auth.POST("/send-login-otp", authH.SendLoginOTP)
	auth.POST("/resend-login-otp", authH.ResendLoginOTP)
	auth.POST("/verify-login", authH.VerifyLogin)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/verify-reset-otp", authH.VerifyResetOTP)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.POST("/logout", authH.Logout)

	protected := auth.Group("", requireSession)
	protected.POST("/change-password", authH.ChangePassword)
	protected.DELETE("/delete-account", authH.DeleteAccount)
	protected.GET("/me", authH.Me)

	r.NoRoute(func(c *gin.Context) {
		respondFail(c, http.StatusNotFound, "Route not found")
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recoveryMiddleware responde con el envelope estándar ante un panic.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: serverErrorMessage})
	})
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
