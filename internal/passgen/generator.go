// Package passgen generates random passwords and scores password strength.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/cryptox"
)

const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Numbers   = "0123456789"
	Special   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// MinLength is the shortest password Generate returns.
	MinLength = 4
	// MaxLength is the longest password Generate accepts.
	MaxLength = 1024
)

// Options selects the length and character classes of a generated password.
type Options struct {
	Length  int  `json:"length"`
	Upper   bool `json:"upper"`
	Lower   bool `json:"lower"`
	Numbers bool `json:"numbers"`
	Special bool `json:"special"`
}

// DefaultOptions is 16 characters drawn from all four classes.
var DefaultOptions = Options{Length: 16, Upper: true, Lower: true, Numbers: true, Special: true}

// classes returns the selected character classes, falling back to
// lowercase letters when none is selected.
func (o Options) classes() []string {
	var cs []string
	if o.Upper {
		cs = append(cs, Uppercase)
	}
	if o.Lower {
		cs = append(cs, Lowercase)
	}
	if o.Numbers {
		cs = append(cs, Numbers)
	}
	if o.Special {
		cs = append(cs, Special)
	}
	if len(cs) == 0 {
		cs = append(cs, Lowercase)
	}
	return cs
}

// Pool returns every character Generate may emit for o.
func (o Options) Pool() string {
	return strings.Join(o.classes(), "")
}

// Generate returns a password of max(o.Length, MinLength) characters. Each
// selected class contributes at least one character; the rest are drawn
// uniformly from the union of the classes and the result is shuffled.
// Lengths above MaxLength are rejected with cryptox.ErrInvalidInput.
func Generate(o Options) (string, error) {
	if o.Length > MaxLength {
		return "", fmt.Errorf("%w: length %d exceeds %d", cryptox.ErrInvalidInput, o.Length, MaxLength)
	}
	length := max(o.Length, MinLength)
	classes := o.classes()
	pool := strings.Join(classes, "")

	out := make([]byte, 0, length)
	for _, c := range classes {
		ch, err := pick(c)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	for len(out) < length {
		ch, err := pick(pool)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	for i := len(out) - 1; i > 0; i-- {
		j, err := randIntn(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	i, err := randIntn(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", cryptox.ErrCrypto, err)
	}
	return int(v.Int64()), nil
}
