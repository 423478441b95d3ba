package domain

import "time"

// Purpose identifica para qué se emitió un OTP.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeLogin         Purpose = "login"
	PurposeResetPassword Purpose = "reset_password"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerifyEmail, PurposeLogin, PurposeResetPassword:
		return true
	}
	return false
}

// OTPSlot guarda el hash de un código y su expiración. Ambos campos se
// asignan o se vacían juntos.
type OTPSlot struct {
	Hash      string
	ExpiresAt *time.Time
}

func (s *OTPSlot) Set(hash string, expiresAt time.Time) {
	exp := expiresAt.UTC()
	s.Hash = hash
	s.ExpiresAt = &exp
}

func (s *OTPSlot) Clear() {
	s.Hash = ""
	s.ExpiresAt = nil
}

// Active indica si hay un código emitido (vigente o no).
func (s OTPSlot) Active() bool {
	return s.Hash != "" && s.ExpiresAt != nil
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsVerified   bool
	Verification OTPSlot
	Login        OTPSlot
	Reset        OTPSlot
	CreatedAt    time.Time
}

// Slot devuelve el slot asociado al propósito, o nil si el propósito no existe.
func (u *User) Slot(purpose Purpose) *OTPSlot {
	switch purpose {
	case PurposeVerifyEmail:
		return &u.Verification
	case PurposeLogin:
		return &u.Login
	case PurposeResetPassword:
		return &u.Reset
	}
	return nil
}

// UserSummary es la única representación de usuario que sale por la API.
type UserSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}
