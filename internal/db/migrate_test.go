package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"

	"guardian-gate/internal/db/migrations"
)

func TestMigrate_RunsEmbeddedMigrations(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	if err := migrate(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotDir != "." {
		t.Fatalf("expected dir '.', got %q", gotDir)
	}
}

func TestMigrate_WrapsGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("boom")
	gooseUpContext = func(_ context.Context, _ *sql.DB, _ string, _ ...goose.OptionsFunc) error {
		return boom
	}

	err := migrate(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped goose error, got %v", err)
	}
}

func TestMigrations_DeclareTokenColumns(t *testing.T) {
	raw, err := fs.ReadFile(migrations.Migrations, "00001_create_users.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(raw)
	for _, col := range []string{
		"verification_token", "verification_token_expires",
		"login_token", "login_token_expires",
		"reset_password_token", "reset_password_expires",
		"email                       TEXT NOT NULL UNIQUE",
	} {
		if !strings.Contains(sqlText, col) {
			t.Fatalf("expected migration to contain %q", col)
		}
	}
	if !strings.Contains(sqlText, "-- +goose Up") || !strings.Contains(sqlText, "-- +goose Down") {
		t.Fatalf("expected goose annotations")
	}
}
