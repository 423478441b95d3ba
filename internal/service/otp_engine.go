package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"guardian-gate/internal/domain"
	"guardian-gate/internal/repository"
)

const (
	otpMin    = 100000
	otpMax    = 999999
	otpDigits = 6
)

// OTPTTLs define la vigencia de cada propósito.
type OTPTTLs struct {
	VerifyEmail   time.Duration
	Login         time.Duration
	ResetPassword time.Duration
}

func DefaultOTPTTLs() OTPTTLs {
	return OTPTTLs{
		VerifyEmail:   2 * time.Minute,
		Login:         2 * time.Minute,
		ResetPassword: 10 * time.Minute,
	}
}

// OTPEngine emite, valida y limpia códigos de un solo uso sobre el usuario.
type OTPEngine struct {
	users repository.UserRepository
	ttls  OTPTTLs
	now   func() time.Time
}

func NewOTPEngine(users repository.UserRepository, ttls OTPTTLs) *OTPEngine {
	def := DefaultOTPTTLs()
	if ttls.VerifyEmail <= 0 {
		ttls.VerifyEmail = def.VerifyEmail
	}
	if ttls.Login <= 0 {
		ttls.Login = def.Login
	}
	if ttls.ResetPassword <= 0 {
		ttls.ResetPassword = def.ResetPassword
	}
	return &OTPEngine{
		users: users,
		ttls:  ttls,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (e *OTPEngine) TTL(purpose domain.Purpose) time.Duration {
	switch purpose {
	case domain.PurposeVerifyEmail:
		return e.ttls.VerifyEmail
	case domain.PurposeLogin:
		return e.ttls.Login
	case domain.PurposeResetPassword:
		return e.ttls.ResetPassword
	}
	return 0
}

// Generate devuelve un código de 6 dígitos uniforme en [100000, 999999].
func (e *OTPEngine) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// Issue genera un código y lo asigna al slot del propósito, reemplazando el
// anterior. No persiste.
func (e *OTPEngine) Issue(user *domain.User, purpose domain.Purpose) (string, time.Time, error) {
	slot := user.Slot(purpose)
	if slot == nil {
		return "", time.Time{}, fmt.Errorf("unknown otp purpose %q", purpose)
	}
	code, err := e.Generate()
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := hashOTP(code)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := e.now().Add(e.TTL(purpose))
	slot.Set(hash, expiresAt)
	return code, expiresAt, nil
}

// Attach emite el código y persiste solo el slot del propósito.
func (e *OTPEngine) Attach(ctx context.Context, user *domain.User, purpose domain.Purpose) (string, time.Time, error) {
	code, expiresAt, err := e.Issue(user, purpose)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := e.users.SaveSlot(ctx, user.ID, purpose, *user.Slot(purpose)); err != nil {
		return "", time.Time{}, writeError(err)
	}
	return code, expiresAt, nil
}

// Consume limpia el slot y lo persiste; el código deja de ser válido.
func (e *OTPEngine) Consume(ctx context.Context, user *domain.User, purpose domain.Purpose) error {
	slot := user.Slot(purpose)
	if slot == nil {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}
	slot.Clear()
	if err := e.users.SaveSlot(ctx, user.ID, purpose, domain.OTPSlot{}); err != nil {
		return writeError(err)
	}
	return nil
}

// Validate acepta el código solo si el slot está asignado, coincide y no ha
// expirado. Un intento fallido no limpia el slot.
func (e *OTPEngine) Validate(user domain.User, purpose domain.Purpose, candidate string) error {
	slot := user.Slot(purpose)
	if slot == nil || !slot.Active() {
		return ErrInvalidOrExpiredCode
	}
	if !isValidOTPCode(candidate) {
		return ErrInvalidOrExpiredCode
	}
	if !e.now().Before(*slot.ExpiresAt) {
		return ErrInvalidOrExpiredCode
	}
	if !verifyOTP(candidate, slot.Hash) {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

// Clear vacía el slot solo en memoria.
func (e *OTPEngine) Clear(user *domain.User, purpose domain.Purpose) {
	if slot := user.Slot(purpose); slot != nil {
		slot.Clear()
	}
}

func hashOTP(code string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return saltStr + ":" + hash, nil
}

func verifyOTP(code, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	saltStr := parts[0]
	expectedHash := parts[1]
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(expectedHash)) == 1
}

func isValidOTPCode(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
