package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"guardian-gate/internal/domain"
)

const sessionTokenType = "session"

// SessionService emite y valida el token de sesión (JWT HS256).
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type Session struct {
	Token     string
	ExpiresAt time.Time
}

type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

func NewSessionService(secret string, ttl time.Duration, issuer string) *SessionService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "guardian-gate"
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue firma un token que liga el id del usuario con una expiración fija.
func (s *SessionService) Issue(user domain.User) (Session, error) {
	if len(s.secret) == 0 || strings.TrimSpace(user.ID) == "" {
		return Session{}, ErrSessionInvalid
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID:    user.ID,
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *SessionService) Parse(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrSessionInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrSessionExpired
		}
		return Claims{}, ErrSessionInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrSessionInvalid
	}
	return claims, nil
}

func (s *SessionService) isValidClaims(claims Claims) bool {
	if claims.TokenType != sessionTokenType {
		return false
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
