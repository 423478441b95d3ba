package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"

	NotifierSMTP  = "smtp"
	NotifierKafka = "kafka"
	NotifierLog   = "log"

	SMTPAuthPlain   = "plain"
	SMTPAuthXOAuth2 = "xoauth2"

	EnvDevelopment = "development"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv         string `env:"APP_ENV" envDefault:"production"`
	StoreDriver    string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"168h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"guardian-gate"`
	CookieTTL time.Duration `env:"COOKIE_TTL" envDefault:"168h"`

	OTPVerifyTTL time.Duration `env:"OTP_VERIFY_TTL" envDefault:"2m"`
	OTPLoginTTL  time.Duration `env:"OTP_LOGIN_TTL" envDefault:"2m"`
	OTPResetTTL  time.Duration `env:"OTP_RESET_TTL" envDefault:"10m"`

	NotifierDriver string `env:"NOTIFIER_DRIVER" envDefault:"smtp"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser       string `env:"SMTP_USER"`
	SMTPPass       string `env:"SMTP_PASS"`
	SMTPFrom       string `env:"SMTP_FROM"`
	SMTPFromName   string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS     bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	SMTPAuth       string `env:"SMTP_AUTH" envDefault:"plain"`

	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthRefreshToken string `env:"OAUTH_REFRESH_TOKEN"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`

	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"auth.notifications"`
	KafkaUsername string   `env:"KAFKA_USERNAME"`
	KafkaPassword string   `env:"KAFKA_PASSWORD"`
	KafkaUseTLS   bool     `env:"KAFKA_USE_TLS" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.NotifierDriver = strings.ToLower(strings.TrimSpace(cfg.NotifierDriver))
	cfg.SMTPAuth = strings.ToLower(strings.TrimSpace(cfg.SMTPAuth))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba los requisitos que dependen del driver elegido.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.NotifierDriver {
	case NotifierSMTP:
		if strings.TrimSpace(c.SMTPHost) == "" || strings.TrimSpace(c.SMTPFrom) == "" {
			errs = append(errs, errors.New("SMTP_HOST and SMTP_FROM are required for the smtp notifier"))
		}
		if c.SMTPAuth != SMTPAuthPlain && c.SMTPAuth != SMTPAuthXOAuth2 {
			errs = append(errs, fmt.Errorf("unknown SMTP_AUTH %q", c.SMTPAuth))
		}
		if c.SMTPAuth == SMTPAuthXOAuth2 && (c.OAuthClientID == "" || c.OAuthRefreshToken == "") {
			errs = append(errs, errors.New("OAUTH_CLIENT_ID and OAUTH_REFRESH_TOKEN are required for xoauth2"))
		}
	case NotifierKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka notifier"))
		}
	case NotifierLog:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER_DRIVER %q", c.NotifierDriver))
	}

	for name, ttl := range map[string]time.Duration{
		"JWT_TTL":        c.JWTTTL,
		"OTP_VERIFY_TTL": c.OTPVerifyTTL,
		"OTP_LOGIN_TTL":  c.OTPLoginTTL,
		"OTP_RESET_TTL":  c.OTPResetTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	return errors.Join(errs...)
}

// IsDevelopment indica si las cookies pueden emitirse sin Secure.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), EnvDevelopment)
}
