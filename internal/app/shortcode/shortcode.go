// Package shortcode generates random short codes and retries insertion on collisions.
// Generators are safe for concurrent use.
package shortcode

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Alphabet is the set of characters a generated code is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	DefaultLength      = 8
	DefaultMaxAttempts = 10
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generator produces random codes without checking uniqueness.
type Generator interface {
	Generate(length int) (string, error)
}

type randomGenerator struct{}

// NewRandom returns a Generator backed by crypto/rand.
func NewRandom() Generator {
	return randomGenerator{}
}

// Generate returns a uniformly random string of the given length.
func (randomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether code only uses characters from Alphabet.
func Valid(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
