package passkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func masterKey(t *testing.T, password string) []byte {
	t.Helper()
	salt := base64.StdEncoding.EncodeToString(make([]byte, cryptox.SaltSize))
	key, err := cryptox.DeriveMasterKey([]byte(password), salt)
	require.NoError(t, err)
	return key
}

func TestGenerate_Fields(t *testing.T) {
	key := masterKey(t, "Admin123!")
	iss := NewIssuer(cryptox.DefaultCipher)

	g, err := iss.Generate(key, "")
	require.NoError(t, err)

	id, err := base64.StdEncoding.DecodeString(g.CredentialID)
	require.NoError(t, err)
	assert.Len(t, id, CredentialIDSize)

	h, err := base64.StdEncoding.DecodeString(g.UserHandle)
	require.NoError(t, err)
	assert.Len(t, h, UserHandleSize)

	assert.Zero(t, g.Counter)
	assert.True(t, strings.HasPrefix(g.PublicKeyPEM, "-----BEGIN PUBLIC KEY-----\n"))
	assert.True(t, strings.HasSuffix(g.PublicKeyPEM, "\n-----END PUBLIC KEY-----\n"))
	assert.NotContains(t, g.EncryptedPrivateKey, "PRIVATE KEY")
}

func TestGenerate_KeepsSuppliedUserHandle(t *testing.T) {
	g, err := NewIssuer(cryptox.DefaultCipher).Generate(masterKey(t, "k"), "handle-123")
	require.NoError(t, err)
	assert.Equal(t, "handle-123", g.UserHandle)
}

func TestGenerate_PrivateKeyMatchesPublicKey(t *testing.T) {
	key := masterKey(t, "Admin123!")
	iss := NewIssuer(cryptox.DefaultCipher)

	g, err := iss.Generate(key, "")
	require.NoError(t, err)

	priv, err := iss.OpenPrivateKey(g.EncryptedPrivateKey, key)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, priv.N.BitLen(), MinKeyBits)

	pub, err := ParsePublicKey(g.PublicKeyPEM)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&priv.PublicKey))

	digest := sha256.Sum256([]byte("challenge"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	require.NoError(t, err)
	require.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig))
}

func TestGenerate_FreshPairEachCall(t *testing.T) {
	key := masterKey(t, "k")
	iss := NewIssuer(cryptox.DefaultCipher)

	a, err := iss.Generate(key, "")
	require.NoError(t, err)
	b, err := iss.Generate(key, "")
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicKeyPEM, b.PublicKeyPEM)
	assert.NotEqual(t, a.CredentialID, b.CredentialID)
	assert.NotEqual(t, a.UserHandle, b.UserHandle)
}

func TestOpenPrivateKey_WrongKey(t *testing.T) {
	iss := NewIssuer(cryptox.DefaultCipher)
	g, err := iss.Generate(masterKey(t, "right"), "")
	require.NoError(t, err)

	_, err = iss.OpenPrivateKey(g.EncryptedPrivateKey, masterKey(t, "wrong"))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	iss := NewIssuer(cryptox.DefaultCipher)
	key := masterKey(t, "right")
	a, err := iss.Generate(key, "")
	require.NoError(t, err)
	b, err := iss.Generate(key, "")
	require.NoError(t, err)

	require.NoError(t, iss.Verify(a.EncryptedPrivateKey, a.PublicKeyPEM, key))
	require.ErrorIs(t, iss.Verify(a.EncryptedPrivateKey, b.PublicKeyPEM, key), ErrKeyMismatch)
	require.ErrorIs(t, iss.Verify(a.EncryptedPrivateKey, "junk", key), ErrKeyFormat)
	require.Error(t, iss.Verify(a.EncryptedPrivateKey, a.PublicKeyPEM, masterKey(t, "wrong")))
}

func TestGenerate_RejectsWeakKeysAndEmptyProtectionKey(t *testing.T) {
	iss := NewIssuer(cryptox.DefaultCipher)

	weak := &Issuer{cipher: cryptox.DefaultCipher, bits: 1024}
	_, err := weak.Generate(masterKey(t, "k"), "")
	require.ErrorIs(t, err, cryptox.ErrCrypto)

	_, err = iss.Generate(nil, "")
	require.ErrorIs(t, err, cryptox.ErrInvalidInput)
}

func TestEncodePEM_Layout(t *testing.T) {
	der := make([]byte, 100)
	for i := range der {
		der[i] = byte(i)
	}
	out := EncodePEM("TEST KEY", der)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Equal(t, "-----BEGIN TEST KEY-----", lines[0])
	require.Equal(t, "-----END TEST KEY-----", lines[len(lines)-1])

	body := lines[1 : len(lines)-1]
	for _, l := range body[:len(body)-1] {
		assert.Len(t, l, 64)
	}
	assert.Equal(t, base64.StdEncoding.EncodeToString(der), strings.Join(body, ""))
}

func TestParsePublicKey_Errors(t *testing.T) {
	_, err := ParsePublicKey("garbage")
	require.ErrorIs(t, err, ErrKeyFormat)

	_, err = ParsePublicKey(EncodePEM("RSA PRIVATE KEY", []byte{1, 2, 3}))
	require.ErrorIs(t, err, ErrKeyFormat)

	_, err = ParsePublicKey(EncodePEM(PublicKeyLabel, []byte{1, 2, 3}))
	require.ErrorIs(t, err, ErrKeyFormat)
}
