package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"guardian-gate/internal/domain"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const pgUniqueViolation = "23505"

// slotColumns mapea cada propósito a sus columnas token/expiración.
var slotColumns = map[domain.Purpose][2]string{
	domain.PurposeVerifyEmail:   {"verification_token", "verification_token_expires"},
	domain.PurposeLogin:         {"login_token", "login_token_expires"},
	domain.PurposeResetPassword: {"reset_password_token", "reset_password_expires"},
}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, user domain.User) error
	// Las escrituras son parciales: cada una toca solo sus columnas, así una
	// copia leída antes no pisa cambios concurrentes en otros campos.
	SaveSlot(ctx context.Context, id string, purpose domain.Purpose, slot domain.OTPSlot) error
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, clearReset bool) error
	DeleteByID(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, email, name, password_hash, is_verified,
	verification_token, verification_token_expires,
	login_token, login_token_expires,
	reset_password_token, reset_password_expires,
	created_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query, userArgs(user)...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// SaveSlot reemplaza solo el par token/expiración del propósito.
func (r *PgUserRepository) SaveSlot(ctx context.Context, id string, purpose domain.Purpose, slot domain.OTPSlot) error {
	cols, ok := slotColumns[purpose]
	if !ok {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}
	query := fmt.Sprintf(`UPDATE users SET %s = $2, %s = $3 WHERE id = $1`, cols[0], cols[1])
	return r.exec(ctx, query, id, nullableHash(slot), nullableExpiry(slot))
}

func (r *PgUserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET
			is_verified = TRUE,
			verification_token = NULL,
			verification_token_expires = NULL
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, clearReset bool) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	if clearReset {
		query = `
			UPDATE users SET
				password_hash = $2,
				reset_password_token = NULL,
				reset_password_expires = NULL
			WHERE id = $1
		`
	}
	return r.exec(ctx, query, id, passwordHash)
}

func (r *PgUserRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) DeleteByID(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PgUserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func userArgs(u domain.User) []any {
	return []any{
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.IsVerified,
		nullableHash(u.Verification),
		nullableExpiry(u.Verification),
		nullableHash(u.Login),
		nullableExpiry(u.Login),
		nullableHash(u.Reset),
		nullableExpiry(u.Reset),
		u.CreatedAt,
	}
}

func nullableHash(slot domain.OTPSlot) *string {
	if !slot.Active() {
		return nil
	}
	h := slot.Hash
	return &h
}

func nullableExpiry(slot domain.OTPSlot) *time.Time {
	if !slot.Active() {
		return nil
	}
	return slot.ExpiresAt
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u                         domain.User
		verifyHash, loginHash     *string
		resetHash                 *string
		verifyExp, loginExp, rExp *time.Time
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.IsVerified,
		&verifyHash,
		&verifyExp,
		&loginHash,
		&loginExp,
		&resetHash,
		&rExp,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Verification = slotFrom(verifyHash, verifyExp)
	u.Login = slotFrom(loginHash, loginExp)
	u.Reset = slotFrom(resetHash, rExp)
	return u, nil
}

func slotFrom(hash *string, expiresAt *time.Time) domain.OTPSlot {
	if hash == nil || expiresAt == nil {
		return domain.OTPSlot{}
	}
	var slot domain.OTPSlot
	slot.Set(*hash, *expiresAt)
	return slot
}
