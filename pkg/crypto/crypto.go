package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost keeps a single hash in the tens of milliseconds on current hardware.
const DefaultBcryptCost = 12

// ErrEmptyPassword is returned when hashing an empty plaintext.
var ErrEmptyPassword = errors.New("crypto: password is empty")

// PasswordHasher derives and verifies one-way password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher hashes passwords with bcrypt. The salt is generated per call and embedded in the output.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using the supplied cost, falling back to DefaultBcryptCost when zero.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("crypto: bcrypt cost must be between %d and %d (got %d)", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash returns a bcrypt hash of the supplied password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares the hashed password with the plaintext candidate.
func (h *BcryptHasher) Verify(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewPasswordHasher builds the hasher selected by algorithm ("bcrypt" or "argon2id").
func NewPasswordHasher(algorithm string, bcryptCost int, argon Argon2Parameters) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", "bcrypt":
		return NewBcryptHasher(bcryptCost)
	case "argon2id", "argon2":
		return NewArgon2idHasher(argon)
	default:
		return nil, fmt.Errorf("crypto: unsupported password algorithm %q", algorithm)
	}
}

const (
	// MinTokenBytes guarantees at least 128 bits of entropy per token.
	MinTokenBytes = 16
	// DefaultTokenBytes is the token size used when none is configured.
	DefaultTokenBytes = 32
)

// TokenGenerator mints opaque single-use tokens.
type TokenGenerator struct {
	size int
}

// NewTokenGenerator returns a generator producing tokens of size random bytes.
func NewTokenGenerator(size int) (*TokenGenerator, error) {
	if size == 0 {
		size = DefaultTokenBytes
	}
	if size < MinTokenBytes {
		return nil, fmt.Errorf("crypto: token size must be at least %d bytes (got %d)", MinTokenBytes, size)
	}
	return &TokenGenerator{size: size}, nil
}

// Generate returns a new random URL-safe token.
func (g *TokenGenerator) Generate() (string, error) {
	return GenerateToken(g.size)
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("crypto: token length must be positive")
	}
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
