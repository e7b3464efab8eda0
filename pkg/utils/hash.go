package utils

import (
	"crypto/sha256"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// NormalizeNationalID canonicalizes a national identity number: uppercased,
// whitespace and hyphens stripped. Canonicalization happens before hashing so
// formatting variants of the same ID collide.
func NormalizeNationalID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HashNationalID returns the SHA-256 digest of the canonical national ID.
// The cleartext ID is never stored or compared.
func HashNationalID(id string) []byte {
	sum := sha256.Sum256([]byte(NormalizeNationalID(id)))
	return sum[:]
}
