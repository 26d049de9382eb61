package cryptox

import "errors"

var (
	// ErrInvalidInput reports malformed salts, ciphertext encodings or
	// non-positive derivation parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCrypto reports a failed cryptographic operation: bad padding,
	// undecodable plaintext, key generation or random source failure.
	ErrCrypto = errors.New("crypto error")

	// ErrAuthentication reports a password or master key that does not match
	// the stored hash. It is an expected outcome, not a fault.
	ErrAuthentication = errors.New("authentication failed")
)
