package cryptox

import (
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

// VerifyPassword recomputes the hash of password under salt and compares it
// byte for byte with storedHash. A mismatch or a malformed salt yields false;
// it never returns an error.
func (k KDF) VerifyPassword(password []byte, salt, storedHash string) bool {
	computed, err := k.HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// VerifyPassword verifies with DefaultKDF.
func VerifyPassword(password []byte, salt, storedHash string) bool {
	return DefaultKDF.VerifyPassword(password, salt, storedHash)
}

// Unlock verifies password against storedHash and returns the master key
// from the same PBKDF2 run. On mismatch it returns nil, false.
func (k KDF) Unlock(password []byte, salt, storedHash string) ([]byte, bool) {
	out, err := k.derive(password, salt)
	if err != nil {
		return nil, false
	}
	defer common.WipeByteArray(out)

	computed := base64.StdEncoding.EncodeToString(out[:KeySize])
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) != 1 {
		return nil, false
	}
	key := make([]byte, KeySize)
	copy(key, out[KeySize:])
	return key, true
}
