package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/sha3"
)

// argon2id parameters for username hashing. These match common interactive
// settings; changing them invalidates every stored hash.
const (
	argonTime    = 2
	argonMemory  = 64 * 1024
	argonThreads = 2
	argonKeyLen  = 32

	saltLen = 16
)

// GenerateSalt returns a fresh random salt for username hashing.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// HashUsername derives the stored username hash from the username and salt.
func HashUsername(username string, salt []byte) string {
	digest := argon2.IDKey([]byte(username), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.RawStdEncoding.EncodeToString(digest)
}

// VerifyUsername reports whether the username matches a stored hash under
// the given salt.
func VerifyUsername(username string, salt []byte, storedHash string) bool {
	computed := HashUsername(username, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// HashPassword derives a self-contained argon2id password hash with an
// embedded salt.
func HashPassword(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	digest := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("argon2id$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest)), nil
}

// VerifyPassword checks a password against a hash produced by HashPassword.
func VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NewVerificationToken derives the opaque token a client presents on every
// authenticated request. The token binds a random salt, a fresh UUID, and
// the username through sha3-512, so it cannot be recomputed from the
// username alone.
func NewVerificationToken(username string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate token salt: %w", err)
	}
	data := hex.EncodeToString(salt) + uuid.NewString() + username
	digest := sha3.Sum512([]byte(data))
	return hex.EncodeToString(digest[:]), nil
}
