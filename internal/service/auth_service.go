package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guardian-gate/internal/domain"
	"guardian-gate/internal/email"
	"guardian-gate/internal/repository"
)

// AuthService orquesta registro, login con OTP, recuperación de contraseña y
// baja de cuenta sobre el repositorio, el motor OTP y el notificador.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	otp      *OTPEngine
	notifier email.Sender
	hasher   PasswordHasher
	now      func() time.Time
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, otp *OTPEngine, notifier email.Sender, hasher PasswordHasher) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		otp:      otp,
		notifier: notifier,
		hasher:   hasher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

type ResetPasswordInput struct {
	Email           string
	Code            string
	Password        string
	ConfirmPassword string
}

type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	emailAddr := normalizeEmail(input.Email)
	if name == "" || emailAddr == "" || input.Password == "" {
		return domain.User{}, ErrValidation
	}
	if input.Password != input.ConfirmPassword {
		return domain.User{}, ErrPasswordMismatch
	}

	_, err := s.users.FindByEmail(ctx, emailAddr)
	if err == nil {
		return domain.User{}, ErrDuplicateEmail
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, storeError(err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	code, expiresAt, err := s.otp.Issue(&user, domain.PurposeVerifyEmail)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, storeError(err)
	}

	if err := s.notifier.SendVerification(ctx, user.Email, user.Name, code, expiresAt); err != nil {
		return domain.User{}, s.notifyFailed("verification", user.Email, err)
	}
	return user, nil
}

// VerifyEmail marca el email como verificado y envía el correo de bienvenida.
func (s *AuthService) VerifyEmail(ctx context.Context, emailAddr, code string) (domain.User, error) {
	user, err := s.userForCode(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.otp.Validate(user, domain.PurposeVerifyEmail, code); err != nil {
		return domain.User{}, err
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return domain.User{}, writeError(err)
	}
	user.IsVerified = true
	s.otp.Clear(&user, domain.PurposeVerifyEmail)

	if err := s.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
		return domain.User{}, s.notifyFailed("welcome", user.Email, err)
	}
	return user, nil
}

func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	code, expiresAt, err := s.otp.Attach(ctx, &user, domain.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	if err := s.notifier.SendVerification(ctx, user.Email, user.Name, code, expiresAt); err != nil {
		return s.notifyFailed("verification", user.Email, err)
	}
	return nil
}

// SendLoginOTP es el primer paso del login: comprueba la contraseña y envía
// un código de login.
func (s *AuthService) SendLoginOTP(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if strings.TrimSpace(emailAddr) == "" || password == "" {
		return domain.User{}, ErrValidation
	}
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.User{}, err
	}
	if !user.IsVerified {
		return domain.User{}, ErrNotVerified
	}

	code, expiresAt, err := s.otp.Attach(ctx, &user, domain.PurposeLogin)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.notifier.SendVerification(ctx, user.Email, user.Name, code, expiresAt); err != nil {
		return domain.User{}, s.notifyFailed("login", user.Email, err)
	}
	return user, nil
}

func (s *AuthService) ResendLoginOTP(ctx context.Context, emailAddr string) error {
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	code, expiresAt, err := s.otp.Attach(ctx, &user, domain.PurposeLogin)
	if err != nil {
		return err
	}
	if err := s.notifier.SendVerification(ctx, user.Email, user.Name, code, expiresAt); err != nil {
		return s.notifyFailed("login", user.Email, err)
	}
	return nil
}

func (s *AuthService) VerifyLogin(ctx context.Context, emailAddr, code string) (domain.User, error) {
	user, err := s.userForCode(ctx, emailAddr)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.otp.Validate(user, domain.PurposeLogin, code); err != nil {
		return domain.User{}, err
	}
	// resend-login-otp no exige verificación previa; la sesión sí
	if !user.IsVerified {
		return domain.User{}, ErrNotVerified
	}

	if err := s.otp.Consume(ctx, &user, domain.PurposeLogin); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.findByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	code, expiresAt, err := s.otp.Attach(ctx, &user, domain.PurposeResetPassword)
	if err != nil {
		return err
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, code, expiresAt); err != nil {
		return s.notifyFailed("password reset", user.Email, err)
	}
	return nil
}

// VerifyResetOTP comprueba el código sin consumirlo: ResetPassword lo vuelve
// a validar.
func (s *AuthService) VerifyResetOTP(ctx context.Context, emailAddr, code string) error {
	user, err := s.userForCode(ctx, emailAddr)
	if err != nil {
		return err
	}
	return s.otp.Validate(user, domain.PurposeResetPassword, code)
}

func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if input.Password == "" {
		return ErrValidation
	}
	if input.Password != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	user, err := s.userForCode(ctx, input.Email)
	if err != nil {
		return err
	}
	if err := s.otp.Validate(user, domain.PurposeResetPassword, input.Code); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}
	// el hash y el slot de reset se escriben juntos: el código no sirve dos veces
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, true); err != nil {
		return writeError(err)
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if input.NewPassword == "" {
		return ErrValidation
	}
	if input.NewPassword != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	user, err := s.findByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, input.CurrentPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, false); err != nil {
		return writeError(err)
	}
	return nil
}

// DeleteAccount exige reconfirmar email y contraseña antes de borrar.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, emailAddr, password string) error {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email != normalizeEmail(emailAddr) {
		return ErrEmailMismatch
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return err
	}
	if err := s.users.DeleteByID(ctx, user.ID); err != nil {
		return writeError(err)
	}
	return nil
}

func (s *AuthService) GetSelf(ctx context.Context, userID string) (domain.User, error) {
	return s.findByID(ctx, userID)
}

func (s *AuthService) findByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrValidation
	}
	user, err := s.users.FindByEmail(ctx, emailAddr)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, storeError(err)
	}
	return user, nil
}

func (s *AuthService) findByID(ctx context.Context, id string) (domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return domain.User{}, ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, storeError(err)
	}
	return user, nil
}

// userForCode oculta si el email existe: un usuario desconocido se reporta
// igual que un código inválido.
func (s *AuthService) userForCode(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.findByEmail(ctx, emailAddr)
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrValidation) {
		return domain.User{}, ErrInvalidOrExpiredCode
	}
	return user, err
}

func (s *AuthService) notifyFailed(kind, emailAddr string, err error) error {
	s.logger.Warn("send email failed",
		zap.String("kind", kind),
		zap.String("email", emailAddr),
		zap.Error(err),
	)
	return notifierError(err)
}

func normalizeEmail(emailAddr string) string {
	return strings.ToLower(strings.TrimSpace(emailAddr))
}
