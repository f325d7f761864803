package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	MinCodeDigits = 4
	MaxCodeDigits = 10
)

var ErrInvalidCodeDigits = errors.New("invalid otp digits")

// NewCode draws a numeric code of the given length from r. Each digit is
// sampled independently and uniformly; leading zeros are kept. A nil reader
// falls back to crypto/rand.
func NewCode(r io.Reader, digits int) (string, error) {
	if digits < MinCodeDigits || digits > MaxCodeDigits {
		return "", ErrInvalidCodeDigits
	}
	if r == nil {
		r = rand.Reader
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	code := b.String()
	if len(code) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return code, nil
}

// HashCode returns the digest stored in place of a plaintext code.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}
