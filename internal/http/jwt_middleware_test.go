package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guardian-gate/internal/domain"
	"guardian-gate/internal/service"
)

func setupProtected(t *testing.T) (*gin.Engine, *mockUserRepo, *service.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := newMockUserRepo()
	repo.usersByID["u1"] = domain.User{ID: "u1", Email: "user@example.com", IsVerified: true}
	repo.usersByEmail["user@example.com"] = "u1"

	authSvc := service.NewAuthService(zap.NewNop(), repo, service.NewOTPEngine(repo, service.DefaultOTPTTLs()), &mockEmailSender{}, nil)
	sessions := service.NewSessionService("secret", time.Hour, "")

	r := gin.New()
	r.GET("/protected", SessionAuthMiddleware(zap.NewNop(), sessions, authSvc), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.ID != "u1" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})
	return r, repo, sessions
}

func TestSessionAuthMiddleware_AllowsBearerToken(t *testing.T) {
	r, _, sessions := setupProtected(t)
	session, err := sessions.Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionAuthMiddleware_AllowsCookie(t *testing.T) {
	r, _, sessions := setupProtected(t)
	session, err := sessions.Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.Token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionAuthMiddleware_RejectsMissingToken(t *testing.T) {
	r, _, _ := setupProtected(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthMiddleware_RejectsTamperedToken(t *testing.T) {
	r, _, _ := setupProtected(t)
	other := service.NewSessionService("other-secret", time.Hour, "")
	session, err := other.Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthMiddleware_RejectsDeletedUser(t *testing.T) {
	r, repo, sessions := setupProtected(t)
	session, err := sessions.Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	delete(repo.usersByID, "u1")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
