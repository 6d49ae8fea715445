package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// The digest is deliberately deterministic: the salt is a fixed system
// constant plus the lowercased email, so the same (password, email) pair
// always yields the same hex digest across restarts. Account lockout, not
// per-user random salts, is the brute-force defense in this system.
const saltKey = "PG_DISSERTATION_SYSTEM_2024_SECURE_SALT"

const (
	iterations = 64_000
	keyLength  = 32
)

// tempPasswordAlphabet covers the mixed alphanumeric+symbol set used for
// provisioned temporary passwords.
const tempPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// TempPasswordLength is the length of generated temporary passwords.
const TempPasswordLength = 12

// Hash derives a hex-encoded PBKDF2-SHA256 digest of the password bound to
// the account email.
func Hash(password, email string) string {
	salt := []byte(saltKey + strings.ToLower(email))
	digest := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return hex.EncodeToString(digest)
}

// Verify recomputes the digest and compares it in constant time.
func Verify(password, email, digest string) bool {
	computed := Hash(password, email)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// GenerateTemporary returns a random temporary password for newly
// provisioned accounts, meant for out-of-band delivery.
func GenerateTemporary() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	var sb strings.Builder
	sb.Grow(TempPasswordLength)
	for i := 0; i < TempPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate temporary password: %w", err)
		}
		sb.WriteByte(tempPasswordAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
