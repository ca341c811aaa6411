package captcha

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	IDLength   = 32
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// intnFunc returns a uniform integer in [0, n).
type intnFunc func(n int) (int, error)

func cryptoIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// NewID mints an unpredictable 32-character URL-safe challenge id.
func NewID() (string, error) {
	return randomString(cryptoIntn, IDLength, idAlphabet)
}

func randomString(intn intnFunc, n int, alphabet string) (string, error) {
	if alphabet == "" {
		return "", fmt.Errorf("empty alphabet")
	}
	b := make([]byte, n)
	for i := range b {
		k, err := intn(len(alphabet))
		if err != nil {
			return "", err
		}
		b[i] = alphabet[k]
	}
	return string(b), nil
}

// between returns a uniform integer in [lo, hi].
func between(intn intnFunc, lo, hi int) (int, error) {
	v, err := intn(hi - lo + 1)
	if err != nil {
		return 0, err
	}
	return lo + v, nil
}
