package auth_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcq-platform/backend/internal/auth"
)

func TestPasswordLifecycle(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "admin_secret")
	svc := auth.NewService("test-hmac-key", secretFile)

	// Before create-admin has run, login is unavailable.
	if err := svc.VerifyPassword("anything"); !errors.Is(err, auth.ErrNoAdminSecret) {
		t.Fatalf("err = %v, want ErrNoAdminSecret", err)
	}

	if err := auth.WriteAdminSecret(secretFile, "short"); err == nil {
		t.Fatal("five-character password accepted")
	}
	if err := auth.WriteAdminSecret(secretFile, "correct horse"); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	info, err := os.Stat(secretFile)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("secret file mode = %v", info.Mode().Perm())
	}
	raw, err := os.ReadFile(secretFile)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) == "correct horse" {
		t.Fatal("password stored in plaintext")
	}

	if err := svc.VerifyPassword("correct horse"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.VerifyPassword("wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := auth.NewService("test-hmac-key", "")

	tok, err := svc.IssueToken("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %q", claims.Role)
	}

	if _, err := svc.Parse(tok + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}

	// A token signed with a different key must not verify.
	other := auth.NewService("other-key", "")
	stolen, err := other.IssueToken("admin")
	if err != nil {
		t.Fatalf("issue other: %v", err)
	}
	if _, err := svc.Parse(stolen); err == nil {
		t.Fatal("foreign-key token accepted")
	}
}
