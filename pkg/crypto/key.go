package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
)

const (
	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	// DefaultKeyLength is 43 * 6 = 258 bits of entropy
	DefaultKeyLength = 43
)

var (
	ErrAlphabetTooShort = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetTooLong  = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetNotASCII = errors.New("alphabet must contain only ASCII characters")
)

// KeyGenerator draws uniformly random strings from an alphabet.
type KeyGenerator struct {
	alphabet string
	mask     byte
}

// NewKeyGenerator returns a generator over alphabet, or the URL-safe
// default alphabet when it is empty.
func NewKeyGenerator(alphabet string) (*KeyGenerator, error) {
	if alphabet == "" {
		alphabet = keyAlphabet
	}
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}
	switch {
	case len(alphabet) < 8:
		return nil, ErrAlphabetTooShort
	case len(alphabet) > 255:
		return nil, ErrAlphabetTooLong
	}

	return &KeyGenerator{alphabet: alphabet, mask: maskFor(len(alphabet))}, nil
}

// maskFor is the smallest all-ones byte that covers every alphabet index.
func maskFor(n int) byte {
	mask := 1
	for mask < n-1 {
		mask = mask<<1 | 1
	}
	return byte(mask)
}

// Generate returns a random string of length characters. Random bytes
// outside the alphabet after masking are discarded so every character is
// equally likely.
func (g *KeyGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultKeyLength
	}

	n := len(g.alphabet)
	step := int(math.Ceil(1.6 * float64(int(g.mask)*length) / float64(n)))

	out := make([]byte, 0, length)
	buf := make([]byte, step)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if idx := int(b & g.mask); idx < n {
				out = append(out, g.alphabet[idx])
				if len(out) == length {
					break
				}
			}
		}
	}

	return string(out), nil
}

// GenerateKey returns a random URL-safe admin key.
func GenerateKey() (string, error) {
	g, err := NewKeyGenerator("")
	if err != nil {
		return "", err
	}
	return g.Generate(DefaultKeyLength)
}

// HashToken is the cache key for a verified admin key. It is a plain
// SHA-256 and must never be used for storage at rest.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
