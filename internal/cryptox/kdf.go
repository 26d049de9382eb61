// Package cryptox implements the credential-protection primitives: salt
// generation, PBKDF2-HMAC-SHA256 key derivation, password hashing and
// verification, and the self-describing AES-CBC cipher used for every secret
// field stored in a vault.
//
// All functions are stateless and safe for concurrent use. Secret inputs are
// taken as byte slices so callers can wipe them after use.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used for stored
	// password hashes and for the per-call cipher keys.
	DefaultIterations = 10000

	// SaltSize is the number of random bytes in a generated salt.
	SaltSize = 32

	// KeySize is the length of a derived confidentiality key and of a
	// password hash.
	KeySize = 32
)

// KDF derives hashes and master keys with a fixed iteration count.
// The zero value is not usable; see DefaultKDF and NewKDF.
type KDF struct {
	Iterations int
}

// DefaultKDF uses DefaultIterations.
var DefaultKDF = KDF{Iterations: DefaultIterations}

// NewKDF returns a KDF with the given iteration count. Counts below
// DefaultIterations are raised to it.
func NewKDF(iterations int) KDF {
	if iterations < DefaultIterations {
		iterations = DefaultIterations
	}
	return KDF{Iterations: iterations}
}

// GenerateSalt returns SaltSize random bytes, base64-encoded.
func GenerateSalt() (string, error) {
	b, err := common.GenerateRandByteArray(SaltSize)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over password and salt. The output is
// deterministic for identical arguments.
func DeriveKey(password, salt []byte, iterations, length int) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidInput, iterations)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: key length must be positive, got %d", ErrInvalidInput, length)
	}
	return pbkdf2.Key(password, salt, iterations, length, sha256.New), nil
}

func decodeSalt(salt string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt is not valid base64: %w", ErrInvalidInput, err)
	}
	return b, nil
}

// derive returns the first 2*KeySize bytes of the PBKDF2 stream. The first
// block is the verification hash, the second one the master key; PBKDF2
// blocks are computed independently so one does not reveal the other.
func (k KDF) derive(password []byte, salt string) ([]byte, error) {
	s, err := decodeSalt(salt)
	if err != nil {
		return nil, err
	}
	return DeriveKey(password, s, k.Iterations, 2*KeySize)
}

// HashPassword returns base64(PBKDF2(password, salt, k.Iterations, 32)).
// salt is the base64 text produced by GenerateSalt.
func (k KDF) HashPassword(password []byte, salt string) (string, error) {
	s, err := decodeSalt(salt)
	if err != nil {
		return "", err
	}
	h, err := DeriveKey(password, s, k.Iterations, KeySize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h), nil
}

// DeriveMasterKey returns the 32-byte session master key for password and
// salt. The caller owns the slice and should wipe it on logout.
func (k KDF) DeriveMasterKey(password []byte, salt string) ([]byte, error) {
	out, err := k.derive(password, salt)
	if err != nil {
		return nil, err
	}
	key := make([]byte, KeySize)
	copy(key, out[KeySize:])
	common.WipeByteArray(out)
	return key, nil
}

// Credentials returns the stored hash and the master key for password in a
// single derivation.
func (k KDF) Credentials(password []byte, salt string) (string, []byte, error) {
	out, err := k.derive(password, salt)
	if err != nil {
		return "", nil, err
	}
	defer common.WipeByteArray(out)
	key := make([]byte, KeySize)
	copy(key, out[KeySize:])
	return base64.StdEncoding.EncodeToString(out[:KeySize]), key, nil
}

// HashPassword hashes with DefaultKDF.
func HashPassword(password []byte, salt string) (string, error) {
	return DefaultKDF.HashPassword(password, salt)
}

// DeriveMasterKey derives with DefaultKDF.
func DeriveMasterKey(password []byte, salt string) ([]byte, error) {
	return DefaultKDF.DeriveMasterKey(password, salt)
}
