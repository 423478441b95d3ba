package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"guardian-gate/internal/domain"
)

// redisUpdateScript aplica HSET/HDEL campo a campo solo si el usuario existe.
// Un valor vacío borra el campo.
const redisUpdateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
for i = 1, #ARGV, 2 do
  if ARGV[i + 1] == "" then
    redis.call("HDEL", KEYS[1], ARGV[i])
  else
    redis.call("HSET", KEYS[1], ARGV[i], ARGV[i + 1])
  end
end
return 1
`

const (
	fieldID           = "id"
	fieldEmail        = "email"
	fieldName         = "name"
	fieldPasswordHash = "password_hash"
	fieldIsVerified   = "is_verified"
	fieldCreatedAt    = "created_at"
)

// redisSlotFields usa los mismos nombres que las columnas de Postgres.
var redisSlotFields = slotColumns

// RedisUserRepository guarda cada usuario como hash bajo auth:user:<id> con
// un índice auth:user:email:<email> -> id.
type RedisUserRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisUserRepository(client redis.UniversalClient) *RedisUserRepository {
	return &RedisUserRepository{
		client: client,
		prefix: "auth:user:",
	}
}

func (r *RedisUserRepository) idKey(id string) string {
	return r.prefix + id
}

func (r *RedisUserRepository) emailKey(email string) string {
	return r.prefix + "email:" + email
}

func (r *RedisUserRepository) Create(ctx context.Context, user domain.User) error {
	ok, err := r.client.SetNX(ctx, r.emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateEmail
	}
	if err := r.client.HSet(ctx, r.idKey(user.ID), encodeRedisUser(user)).Err(); err != nil {
		_ = r.client.Del(ctx, r.emailKey(user.Email)).Err()
		return err
	}
	return nil
}

func (r *RedisUserRepository) SaveSlot(ctx context.Context, id string, purpose domain.Purpose, slot domain.OTPSlot) error {
	fields, ok := redisSlotFields[purpose]
	if !ok {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}
	hash, expires := encodeSlot(slot)
	return r.update(ctx, id, fields[0], hash, fields[1], expires)
}

func (r *RedisUserRepository) MarkVerified(ctx context.Context, id string) error {
	fields := redisSlotFields[domain.PurposeVerifyEmail]
	return r.update(ctx, id, fieldIsVerified, "1", fields[0], "", fields[1], "")
}

func (r *RedisUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, clearReset bool) error {
	args := []any{fieldPasswordHash, passwordHash}
	if clearReset {
		fields := redisSlotFields[domain.PurposeResetPassword]
		args = append(args, fields[0], "", fields[1], "")
	}
	return r.update(ctx, id, args...)
}

func (r *RedisUserRepository) update(ctx context.Context, id string, fieldValues ...any) error {
	updated, err := r.client.Eval(ctx, redisUpdateScript, []string{r.idKey(id)}, fieldValues...).Int()
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return r.FindByID(ctx, id)
}

func (r *RedisUserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	values, err := r.client.HGetAll(ctx, r.idKey(id)).Result()
	if err != nil {
		return domain.User{}, err
	}
	if len(values) == 0 {
		return domain.User{}, ErrNotFound
	}
	return decodeRedisUser(values)
}

func (r *RedisUserRepository) DeleteByID(ctx context.Context, id string) error {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return r.client.Del(ctx, r.idKey(id), r.emailKey(user.Email)).Err()
}

func (r *RedisUserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func encodeRedisUser(u domain.User) map[string]any {
	values := map[string]any{
		fieldID:           u.ID,
		fieldEmail:        u.Email,
		fieldName:         u.Name,
		fieldPasswordHash: u.PasswordHash,
		fieldIsVerified:   boolField(u.IsVerified),
		fieldCreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for purpose, fields := range redisSlotFields {
		hash, expires := encodeSlot(*u.Slot(purpose))
		if hash == "" {
			continue
		}
		values[fields[0]] = hash
		values[fields[1]] = expires
	}
	return values
}

func decodeRedisUser(values map[string]string) (domain.User, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, values[fieldCreatedAt])
	if err != nil {
		return domain.User{}, fmt.Errorf("decode created_at: %w", err)
	}
	isVerified, err := strconv.ParseBool(values[fieldIsVerified])
	if err != nil {
		return domain.User{}, fmt.Errorf("decode is_verified: %w", err)
	}
	u := domain.User{
		ID:           values[fieldID],
		Email:        values[fieldEmail],
		Name:         values[fieldName],
		PasswordHash: values[fieldPasswordHash],
		IsVerified:   isVerified,
		CreatedAt:    createdAt,
	}
	for purpose, fields := range redisSlotFields {
		slot, err := decodeSlot(values[fields[0]], values[fields[1]])
		if err != nil {
			return domain.User{}, fmt.Errorf("decode %s: %w", fields[1], err)
		}
		*u.Slot(purpose) = slot
	}
	return u, nil
}

func encodeSlot(slot domain.OTPSlot) (string, string) {
	if !slot.Active() {
		return "", ""
	}
	return slot.Hash, slot.ExpiresAt.UTC().Format(time.RFC3339Nano)
}

func decodeSlot(hash, expires string) (domain.OTPSlot, error) {
	if hash == "" || expires == "" {
		return domain.OTPSlot{}, nil
	}
	exp, err := time.Parse(time.RFC3339Nano, expires)
	if err != nil {
		return domain.OTPSlot{}, err
	}
	return slotFrom(&hash, &exp), nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
