package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Cost = bcrypt.MinCost
	return cfg
}

func TestHashAndVerify(t *testing.T) {
	cfg := testConfig()

	hash, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "secret1" {
		t.Fatalf("hash must not equal the raw password")
	}

	ok, err := cfg.Verify(hash, "secret1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}

	ok, err = cfg.Verify(hash, "wrong")
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHash_SaltsVary(t *testing.T) {
	cfg := testConfig()

	h1, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected per-hash salts to produce distinct hashes")
	}
}

func TestValidate_LengthBounds(t *testing.T) {
	cfg := testConfig()

	if _, err := cfg.Hash("abc12"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort for 5-char password, got %v", err)
	}
	if _, err := cfg.Hash(""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort for empty password, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong for 73-byte password, got %v", err)
	}
	if err := cfg.Validate("abc123"); err != nil {
		t.Fatalf("expected 6-char password to pass policy: %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := testConfig()

	ok, err := cfg.Verify("not-a-bcrypt-hash", "secret1")
	if ok {
		t.Fatalf("expected no match for garbage hash")
	}
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AUTHGATE_BCRYPT_COST", "4")
	t.Setenv("AUTHGATE_PASSWORD_MIN_LEN", "8")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Cost != 4 || cfg.Policy.MinLength != 8 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("AUTHGATE_BCRYPT_COST", "99")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for out-of-range cost")
	}
}
