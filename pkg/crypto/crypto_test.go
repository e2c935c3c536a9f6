package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	hash, err := hasher.Hash("pw1234567890")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == "" || hash == "pw1234567890" {
		t.Fatalf("unexpected hash value %q", hash)
	}

	if !hasher.Verify(hash, "pw1234567890") {
		t.Fatal("expected password verification to succeed")
	}
	if hasher.Verify(hash, "pw1234567891") {
		t.Fatal("expected password verification to fail")
	}
}

func TestBcryptHasherSaltsEachHash(t *testing.T) {
	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct hashes for the same plaintext")
	}
	if !hasher.Verify(first, "same-password") || !hasher.Verify(second, "same-password") {
		t.Fatal("expected both hashes to verify")
	}
}

func TestBcryptHasherRejectsInvalidInput(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected cost validation error")
	}

	hasher, err := NewBcryptHasher(0)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	if hasher.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost %d, got %d", DefaultBcryptCost, hasher.cost)
	}
	if _, err := hasher.Hash(""); err != ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if hasher.Verify("", "anything") {
		t.Fatal("expected empty hash to never verify")
	}
}

func TestArgon2idHasherRoundTrip(t *testing.T) {
	hasher, err := NewArgon2idHasher(Argon2Parameters{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLength: 32})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	first, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	second, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if !strings.HasPrefix(first, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %s", first)
	}
	if first == second {
		t.Fatal("expected per-call salt to produce distinct hashes")
	}
	if !hasher.Verify(first, "correct horse") || !hasher.Verify(second, "correct horse") {
		t.Fatal("expected verification to succeed")
	}
	if hasher.Verify(first, "battery staple") {
		t.Fatal("expected verification to fail for wrong password")
	}
	if hasher.Verify("$argon2id$garbage", "correct horse") {
		t.Fatal("expected malformed hash to fail verification")
	}
}

func TestArgon2ParametersValidate(t *testing.T) {
	cases := map[string]Argon2Parameters{
		"time":    {Time: 0, Memory: 1024, Threads: 1, KeyLength: 32},
		"threads": {Time: 1, Memory: 1024, Threads: 0, KeyLength: 32},
		"memory":  {Time: 1, Memory: 4, Threads: 1, KeyLength: 32},
		"key":     {Time: 1, Memory: 1024, Threads: 1, KeyLength: 20},
	}
	for name, params := range cases {
		if err := params.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := DefaultArgon2Params().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
}

func TestNewPasswordHasherSelectsAlgorithm(t *testing.T) {
	h, err := NewPasswordHasher("bcrypt", bcrypt.MinCost, Argon2Parameters{})
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, ok := h.(*BcryptHasher); !ok {
		t.Fatalf("expected bcrypt hasher, got %T", h)
	}

	h, err = NewPasswordHasher("argon2id", 0, Argon2Parameters{})
	if err != nil {
		t.Fatalf("argon2id: %v", err)
	}
	if _, ok := h.(*Argon2idHasher); !ok {
		t.Fatalf("expected argon2id hasher, got %T", h)
	}

	if _, err := NewPasswordHasher("md5", 0, Argon2Parameters{}); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}

func TestTokenGenerator(t *testing.T) {
	if _, err := NewTokenGenerator(8); err == nil {
		t.Fatal("expected error for tokens below 128 bits")
	}

	gen, err := NewTokenGenerator(0)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		token, err := gen.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		// 32 bytes base64url without padding.
		if len(token) != 43 {
			t.Fatalf("unexpected token length %d", len(token))
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}
