package email

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sender define la interfaz para los correos del flujo de autenticación.
type Sender interface {
	SendVerification(ctx context.Context, toEmail, name, code string, expiresAt time.Time) error
	SendWelcome(ctx context.Context, toEmail, name string) error
	SendPasswordReset(ctx context.Context, toEmail, name, code string, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

func (s *disabledSender) SendVerification(_ context.Context, _, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendWelcome(_ context.Context, _, _ string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordReset(_ context.Context, _, _, _ string, _ time.Time) error {
	return s.err()
}

// LogSender escribe los códigos en el log. Solo para desarrollo.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerification(_ context.Context, toEmail, name, code string, expiresAt time.Time) error {
	s.logger.Info("verification code",
		zap.String("to", toEmail),
		zap.String("name", name),
		zap.String("code", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

func (s *LogSender) SendWelcome(_ context.Context, toEmail, name string) error {
	s.logger.Info("welcome email", zap.String("to", toEmail), zap.String("name", name))
	return nil
}

func (s *LogSender) SendPasswordReset(_ context.Context, toEmail, name, code string, expiresAt time.Time) error {
	s.logger.Info("password reset code",
		zap.String("to", toEmail),
		zap.String("name", name),
		zap.String("code", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
