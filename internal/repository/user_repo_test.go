package repository

import (
	"testing"
	"time"

	"guardian-gate/internal/domain"
)

func TestUserArgs_NullsInactiveSlots(t *testing.T) {
	exp := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	user := domain.User{ID: "u1", Email: "a@x.com"}
	user.Login.Set("salt:hash", exp)
	user.Reset = domain.OTPSlot{Hash: "orphan"}

	args := userArgs(user)
	if len(args) != 12 {
		t.Fatalf("expected 12 args, got %d", len(args))
	}
	if args[5].(*string) != nil || args[6].(*time.Time) != nil {
		t.Fatalf("expected verification pair null")
	}
	if h := args[7].(*string); h == nil || *h != "salt:hash" {
		t.Fatalf("unexpected login hash: %v", h)
	}
	if e := args[8].(*time.Time); e == nil || !e.Equal(exp) {
		t.Fatalf("unexpected login expiry: %v", e)
	}
	// un slot a medias se persiste como vacío
	if args[9].(*string) != nil || args[10].(*time.Time) != nil {
		t.Fatalf("expected half-set reset pair stored as null")
	}
}

func TestSlotFrom(t *testing.T) {
	hash := "salt:hash"
	exp := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	slot := slotFrom(&hash, &exp)
	if !slot.Active() || slot.Hash != hash || slot.ExpiresAt.Location() != time.UTC {
		t.Fatalf("unexpected slot: %+v", slot)
	}
	if slotFrom(&hash, nil).Active() || slotFrom(nil, &exp).Active() {
		t.Fatalf("expected empty slot when the pair is incomplete")
	}
}

func TestSlotColumns_CoverEveryPurpose(t *testing.T) {
	purposes := []domain.Purpose{domain.PurposeVerifyEmail, domain.PurposeLogin, domain.PurposeResetPassword}
	seen := map[string]bool{}
	for _, p := range purposes {
		cols, ok := slotColumns[p]
		if !ok {
			t.Fatalf("missing columns for %q", p)
		}
		for _, c := range cols {
			if seen[c] {
				t.Fatalf("column %q shared between purposes", c)
			}
			seen[c] = true
		}
	}
}
