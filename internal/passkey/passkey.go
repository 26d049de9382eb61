// Package passkey issues passkey credentials: a fresh RSA key pair per
// credential, a random credential id and user handle, and the private key
// sealed with the session master key before it leaves the package.
package passkey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
)

const (
	// MinKeyBits is the smallest RSA modulus the issuer accepts.
	MinKeyBits = 2048

	CredentialIDSize = 32
	UserHandleSize   = 16

	PublicKeyLabel  = "PUBLIC KEY"
	PrivateKeyLabel = "RSA PRIVATE KEY"
)

var (
	// ErrKeyFormat is returned when PEM text does not hold the expected key.
	ErrKeyFormat = errors.New("unexpected key format")
	// ErrKeyMismatch is returned when a sealed private key does not belong
	// to the stored public key.
	ErrKeyMismatch = errors.New("private key does not match public key")
)

// Generated is the output of Issuer.Generate. Every field is safe to store:
// the private key is only present in encrypted form.
type Generated struct {
	CredentialID        string
	UserHandle          string
	PublicKeyPEM        string
	EncryptedPrivateKey string
	Counter             int64
}

// Issuer generates passkeys. It holds no per-call state.
type Issuer struct {
	cipher cryptox.Cipher
	bits   int
}

// NewIssuer returns an Issuer producing MinKeyBits RSA keys sealed with c.
func NewIssuer(c cryptox.Cipher) *Issuer {
	return &Issuer{cipher: c, bits: MinKeyBits}
}

// Generate creates a new credential. If userHandle is empty a random
// 16-byte handle is generated. protectionKey is the session master key.
func (i *Issuer) Generate(protectionKey []byte, userHandle string) (*Generated, error) {
	if len(protectionKey) == 0 {
		return nil, fmt.Errorf("%w: empty protection key", cryptox.ErrInvalidInput)
	}
	if i.bits < MinKeyBits {
		return nil, fmt.Errorf("%w: key size %d below minimum %d", cryptox.ErrCrypto, i.bits, MinKeyBits)
	}

	credentialID, err := randomBase64(CredentialIDSize)
	if err != nil {
		return nil, err
	}
	if userHandle == "" {
		userHandle, err = randomBase64(UserHandleSize)
		if err != nil {
			return nil, err
		}
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, i.bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate RSA key pair: %w", cryptox.ErrCrypto, err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %w", cryptox.ErrCrypto, err)
	}

	privDER := x509.MarshalPKCS1PrivateKey(privateKey)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: PrivateKeyLabel, Bytes: privDER})
	common.WipeByteArray(privDER)

	sealed, err := i.cipher.Encrypt(string(privPEM), protectionKey)
	common.WipeByteArray(privPEM)
	if err != nil {
		return nil, fmt.Errorf("seal private key: %w", err)
	}

	return &Generated{
		CredentialID:        credentialID,
		UserHandle:          userHandle,
		PublicKeyPEM:        EncodePEM(PublicKeyLabel, pubDER),
		EncryptedPrivateKey: sealed,
		Counter:             0,
	}, nil
}

// OpenPrivateKey decrypts a sealed private key and parses it.
func (i *Issuer) OpenPrivateKey(sealed string, protectionKey []byte) (*rsa.PrivateKey, error) {
	text, err := i.cipher.Decrypt(sealed, protectionKey)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode([]byte(text))
	if block == nil || block.Type != PrivateKeyLabel {
		return nil, fmt.Errorf("%w: want %q block", ErrKeyFormat, PrivateKeyLabel)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyFormat, err)
	}
	return key, nil
}

// Verify opens the sealed private key and checks that it pairs with
// publicPEM.
func (i *Issuer) Verify(sealed, publicPEM string, protectionKey []byte) error {
	priv, err := i.OpenPrivateKey(sealed, protectionKey)
	if err != nil {
		return err
	}
	pub, err := ParsePublicKey(publicPEM)
	if err != nil {
		return err
	}
	if !priv.PublicKey.Equal(pub) {
		return ErrKeyMismatch
	}
	return nil
}

// EncodePEM armors der as
//
//	-----BEGIN <label>-----\n<base64, 64 columns>\n-----END <label>-----\n
func EncodePEM(label string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: label, Bytes: der}))
}

// ParsePublicKey parses a PUBLIC KEY block holding an RSA key.
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil || block.Type != PublicKeyLabel {
		return nil, fmt.Errorf("%w: want %q block", ErrKeyFormat, PublicKeyLabel)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyFormat, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrKeyFormat)
	}
	return rsaPub, nil
}

func randomBase64(n int) (string, error) {
	b, err := common.GenerateRandByteArray(n)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptox.ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
