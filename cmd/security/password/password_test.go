package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Cost = bcrypt.MinCost
	return cfg
}

func TestHashAndVerify_OK(t *testing.T) {
	cfg := fastConfig()

	h, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if strings.Contains(h, "correct horse") {
		t.Fatalf("hash leaks cleartext")
	}

	ok, err := cfg.Verify(h, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestHash_Salted(t *testing.T) {
	cfg := fastConfig()

	a, err := cfg.Hash("same input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := cfg.Hash("same input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct salts")
	}
}

func TestHash_DefaultCostIsTen(t *testing.T) {
	if DefaultConfig().Cost != 10 {
		t.Fatalf("default cost=%d want=10", DefaultConfig().Cost)
	}

	h, err := DefaultConfig().Hash("pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	cost, err := HashCost(h)
	if err != nil {
		t.Fatalf("HashCost error: %v", err)
	}
	if cost != 10 {
		t.Fatalf("embedded cost=%d want=10", cost)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := fastConfig()

	h, err := cfg.Hash("right")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := fastConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := fastConfig()

	if err := cfg.Validate(""); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate(strings.Repeat("a", 73)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("expected ok at 72 bytes, got %v", err)
	}

	cfg.Policy.MinLength = 8
	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := fastConfig()
	cfg.Policy.RejectVeryWeak = true

	if err := cfg.Validate("password"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := cfg.Validate("aaaaaaaa"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
