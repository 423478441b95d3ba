package service

import (
	"errors"
	"fmt"

	"guardian-gate/internal/repository"
)

var (
	ErrValidation           = errors.New("invalid input")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrDuplicateEmail       = errors.New("user already exists with this email")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyVerified      = errors.New("email is already verified")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotVerified          = errors.New("email not verified")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrEmailMismatch        = errors.New("email does not match")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrNotifierFailure      = errors.New("notification failed")
)

func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// writeError traduce el fallo de una escritura parcial: el usuario pudo
// haberse borrado entre la lectura y la escritura.
func writeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return storeError(err)
}

func notifierError(err error) error {
	return fmt.Errorf("%w: %v", ErrNotifierFailure, err)
}
