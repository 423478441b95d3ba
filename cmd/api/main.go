package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"guardian-gate/internal/config"
	"guardian-gate/internal/db"
	"guardian-gate/internal/email"
	apihttp "guardian-gate/internal/http"
	"guardian-gate/internal/repository"
	"guardian-gate/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	userRepo, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	emailSender, closeSender := buildSender(cfg, logger)
	defer closeSender()

	otpEngine := service.NewOTPEngine(userRepo, service.OTPTTLs{
		VerifyEmail:   cfg.OTPVerifyTTL,
		Login:         cfg.OTPLoginTTL,
		ResetPassword: cfg.OTPResetTTL,
	})
	sessionSvc := service.NewSessionService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	authSvc := service.NewAuthService(logger, userRepo, otpEngine, emailSender, service.NewBcryptHasher(0))

	authHandler := apihttp.NewAuthHandler(logger, authSvc, sessionSvc, apihttp.CookieConfig{
		TTL:    cfg.CookieTTL,
		Secure: !cfg.IsDevelopment(),
	})
	healthHandler := apihttp.NewHealthHandler(logger, userRepo)
	router := apihttp.NewRouter(logger, authHandler, healthHandler, apihttp.SessionAuthMiddleware(logger, sessionSvc, authSvc))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("notifier", cfg.NotifierDriver),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// openStore conecta el driver configurado. Sin store el proceso no arranca.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserRepository, func()) {
	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		return repository.NewRedisUserRepository(client), func() { _ = client.Close() }
	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				logger.Fatal("db migrate", zap.Error(err))
			}
		}
		return repository.NewPgUserRepository(pool), pool.Close
	}
}

func buildSender(cfg *config.Config, logger *zap.Logger) (email.Sender, func()) {
	noop := func() {}
	switch cfg.NotifierDriver {
	case config.NotifierLog:
		logger.Warn("notifier driver log: otp codes will be written to the log")
		return email.NewLogSender(logger), noop
	case config.NotifierKafka:
		sender, err := email.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaUseTLS)
		if err != nil {
			logger.Warn("kafka sender init failed", zap.Error(err))
			return email.NewDisabledSender("email sender not configured"), noop
		}
		return sender, func() { _ = sender.Close() }
	default:
		var opts []email.SMTPOption
		if cfg.SMTPAuth == config.SMTPAuthXOAuth2 {
			opts = append(opts, email.WithXOAuth2(email.OAuth2Credentials{
				ClientID:     cfg.OAuthClientID,
				ClientSecret: cfg.OAuthClientSecret,
				RefreshToken: cfg.OAuthRefreshToken,
				TokenURL:     cfg.OAuthTokenURL,
			}))
		}
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS, opts...)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
			return email.NewDisabledSender("email sender not configured"), noop
		}
		return sender, noop
	}
}
