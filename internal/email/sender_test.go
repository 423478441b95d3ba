package email

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDisabledSender_ReturnsReason(t *testing.T) {
	s := NewDisabledSender("smtp not configured")
	if err := s.SendVerification(context.Background(), "a@example.com", "A", "123456", time.Now()); err == nil || err.Error() != "smtp not configured" {
		t.Fatalf("expected reason error, got %v", err)
	}
	if err := NewDisabledSender("").SendWelcome(context.Background(), "a@example.com", "A"); err == nil {
		t.Fatalf("expected default error")
	}
}

func TestLogSender_LogsCode(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	if err := s.SendPasswordReset(context.Background(), "a@example.com", "A", "654321", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	entries := logs.FilterMessage("password reset code").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["code"] != "654321" {
		t.Fatalf("expected code in log, got %+v", entries[0].ContextMap())
	}
}
