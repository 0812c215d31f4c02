// internal/auth/password.go
//
// Salted PBKDF2-HMAC-SHA256 password hashes.
//
// Stored format:
//   pbkdf2_sha256$<iterations>$<salt>$<base64(std, padded) of 32-byte key>
//
// The salt is used as its UTF-8 bytes, so hashes written by older deployments
// (hex salts from token_hex(16)) verify unchanged.

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Algorithm         = "pbkdf2_sha256"
	DefaultIterations = 260000

	keyLen    = 32
	saltBytes = 16
	// maxIterations bounds the work a stored hash can ask Verify to do.
	maxIterations = 10_000_000
)

// Hash derives the stored form of password. An empty salt is replaced by 16
// random bytes hex-encoded; iterations <= 0 selects DefaultIterations.
func Hash(password, salt string, iterations int) (string, error) {
	if salt == "" {
		var b [saltBytes]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(b[:])
	}
	if strings.Contains(salt, "$") {
		return "", fmt.Errorf("%w: salt must not contain '$'", ErrInvalidInput)
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return encode(password, salt, iterations), nil
}

// HashPassword hashes with a random salt and the default iteration count.
func HashPassword(password string) (string, error) {
	return Hash(password, "", DefaultIterations)
}

// Verify reports whether password matches stored. Malformed input yields false.
func Verify(password, stored string) bool {
	if strings.Count(stored, "$") != 3 {
		return false
	}
	parts := strings.SplitN(stored, "$", 4)
	algorithm, iterStr, salt := parts[0], parts[1], parts[2]
	if algorithm != Algorithm || salt == "" {
		return false
	}
	iterations, err := strconv.Atoi(iterStr)
	if err != nil || iterations <= 0 || iterations > maxIterations {
		return false
	}
	want := encode(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(want), []byte(stored)) == 1
}

func encode(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLen, sha256.New)
	return Algorithm + "$" + strconv.Itoa(iterations) + "$" + salt + "$" + base64.StdEncoding.EncodeToString(key)
}
