package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// inviteAlphabet omits characters that are easy to misread (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Source draws a uniform integer in [0, n).
type Source interface {
	Intn(n int) (int, error)
}

type cryptoSource struct{}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) (int, error) {
	return Intn(n)
}

// Intn returns a cryptographically secure uniform integer in [0, n).
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid range: %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

// Code returns an uppercase invite code of the given length.
func Code(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}
	buf := make([]byte, length)
	for i := range buf {
		j, err := Intn(len(inviteAlphabet))
		if err != nil {
			return "", err
		}
		buf[i] = inviteAlphabet[j]
	}
	return string(buf), nil
}
