package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

// PrefixSize is the length of the random value stored in front of every
// ciphertext. It salts the per-call key and IV derivation.
const PrefixSize = 16

// Cipher encrypts secret strings into self-describing base64 blobs:
//
//	base64( prefix[16] || AES-256-CBC(PKCS#7(plaintext)) )
//
// For every call a fresh prefix is drawn and PBKDF2(key, prefix) yields 48
// bytes: the AES key (0..32) and the IV (32..48). Decryption needs nothing
// but the blob and the same key.
type Cipher struct {
	Iterations int
}

// DefaultCipher uses DefaultIterations, matching blobs written by earlier
// versions of the vault.
var DefaultCipher = Cipher{Iterations: DefaultIterations}

func (c Cipher) keyAndIV(key, prefix []byte) (aesKey, iv []byte, err error) {
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	material, err := DeriveKey(key, prefix, c.Iterations, KeySize+aes.BlockSize)
	if err != nil {
		return nil, nil, err
	}
	return material[:KeySize], material[KeySize:], nil
}

// Encrypt returns a new ciphertext blob for plainText. Two calls with the
// same arguments produce different blobs.
func (c Cipher) Encrypt(plainText string, key []byte) (string, error) {
	prefix, err := common.GenerateRandByteArray(PrefixSize)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	aesKey, iv, err := c.keyAndIV(key, prefix)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(aesKey)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	padded := pad([]byte(plainText), aes.BlockSize)
	out := make([]byte, PrefixSize+len(padded))
	copy(out, prefix)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[PrefixSize:], padded)
	common.WipeByteArray(padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed blobs fail with an error matching both
// ErrCrypto and ErrInvalidInput; a wrong key is reported as ErrCrypto when
// the padding check catches it, which is the common case.
func (c Cipher) Decrypt(blob string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: %w: ciphertext is not valid base64", ErrCrypto, ErrInvalidInput)
	}
	body := len(raw) - PrefixSize
	if body < aes.BlockSize || body%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: %w: ciphertext has invalid length %d", ErrCrypto, ErrInvalidInput, len(raw))
	}

	aesKey, iv, err := c.keyAndIV(key, raw[:PrefixSize])
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(aesKey)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCrypto, err)
	}

	plain := make([]byte, body)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, raw[PrefixSize:])

	plain, err = unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrCrypto)
	}
	return string(plain), nil
}

// EncryptField is Encrypt for optional secret fields: an empty value stays
// empty instead of becoming a blob.
func (c Cipher) EncryptField(value string, key []byte) (string, error) {
	if value == "" {
		return "", nil
	}
	return c.Encrypt(value, key)
}

// DecryptField is the inverse of EncryptField.
func (c Cipher) DecryptField(blob string, key []byte) (string, error) {
	if blob == "" {
		return "", nil
	}
	return c.Decrypt(blob, key)
}

// Encrypt encrypts with DefaultCipher.
func Encrypt(plainText string, key []byte) (string, error) {
	return DefaultCipher.Encrypt(plainText, key)
}

// Decrypt decrypts with DefaultCipher.
func Decrypt(blob string, key []byte) (string, error) {
	return DefaultCipher.Decrypt(blob, key)
}

// CiphertextLen returns the decoded blob size for a plaintext of n bytes.
func CiphertextLen(n int) int {
	return PrefixSize + (n/aes.BlockSize+1)*aes.BlockSize
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: invalid padded length", ErrCrypto)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("%w: invalid padding", ErrCrypto)
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrCrypto)
		}
	}
	return b[:len(b)-n], nil
}
