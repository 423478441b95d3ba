package email

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender("", 587, "", "", "from@example.com", "", false); err == nil {
		t.Fatalf("expected error for empty host")
	}
	if _, err := NewSMTPSender("smtp.example.com", 587, "", "", "", "", false); err == nil {
		t.Fatalf("expected error for empty from")
	}
	if _, err := NewSMTPSender("smtp.example.com", 587, "", "", "from@example.com", "", false, WithXOAuth2(OAuth2Credentials{})); err == nil {
		t.Fatalf("expected error for xoauth2 without user")
	}
	s, err := NewSMTPSender("smtp.example.com", 0, "", "", "from@example.com", "", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.port != 587 {
		t.Fatalf("expected default port 587, got %d", s.port)
	}
}

func TestBuildMessage_Headers(t *testing.T) {
	msg := buildMessage("from@example.com", "Guardian", "to@example.com", "Subject", "<p>body</p>")
	if !strings.Contains(msg, "From: Guardian <from@example.com>\r\n") {
		t.Fatalf("expected named from header, got %q", msg)
	}
	if !strings.Contains(msg, "Content-Type: text/html") {
		t.Fatalf("expected html content type")
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>body</p>") {
		t.Fatalf("expected body after blank line")
	}
}

func TestRender_Kinds(t *testing.T) {
	subject, body, err := render(KindVerification, "Ana", "123456", 2*time.Minute)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Verify Your Email Address" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "123456") || !strings.Contains(body, "2 minutes") || !strings.Contains(body, "Welcome, Ana!") {
		t.Fatalf("unexpected body %q", body)
	}

	_, body, err = render(KindPasswordReset, "Ana", "654321", 10*time.Minute-time.Second)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "654321") || !strings.Contains(body, "10 minutes") {
		t.Fatalf("unexpected reset body %q", body)
	}

	_, body, err = render(KindWelcome, "<script>", "", 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected name to be escaped, got %q", body)
	}

	if _, _, err := render(Kind("unknown"), "", "", 0); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestSMTPSender_AccessTokenPerSend(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			t.Errorf("unexpected token request: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	s, err := NewSMTPSender("smtp.example.com", 587, "me@example.com", "", "me@example.com", "", false,
		WithXOAuth2(OAuth2Credentials{
			ClientID:     "client",
			ClientSecret: "secret",
			RefreshToken: "refresh-1",
			TokenURL:     srv.URL,
		}))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	for i := 0; i < 2; i++ {
		auth, err := s.auth(context.Background())
		if err != nil {
			t.Fatalf("auth: %v", err)
		}
		mech, resp, err := auth.Start(nil)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if mech != "XOAUTH2" {
			t.Fatalf("expected XOAUTH2, got %s", mech)
		}
		if string(resp) != "user=me@example.com\x01auth=Bearer access-1\x01\x01" {
			t.Fatalf("unexpected xoauth2 payload %q", resp)
		}
	}
	if calls != 2 {
		t.Fatalf("expected one token request per send, got %d", calls)
	}
}

func TestSMTPSender_AccessTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	s, err := NewSMTPSender("smtp.example.com", 587, "me@example.com", "", "me@example.com", "", false,
		WithXOAuth2(OAuth2Credentials{ClientID: "client", RefreshToken: "bad", TokenURL: srv.URL}))
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := s.SendWelcome(context.Background(), "to@example.com", "Ana"); err == nil {
		t.Fatalf("expected token failure to surface")
	}
}

func TestSMTPSender_PlainAuthOptional(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", 587, "", "", "from@example.com", "", false)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	auth, err := s.auth(context.Background())
	if err != nil || auth != nil {
		t.Fatalf("expected no auth without user, got %v,%v", auth, err)
	}
}

func TestSMTPSender_RequiresRecipient(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", 587, "", "", "from@example.com", "", false)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if err := s.SendWelcome(context.Background(), " ", "Ana"); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}
