// Package shortcode generates and validates short codes.
package shortcode

import (
	"crypto/rand"
	"math/big"
)

const (
	Alphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	MinLength = 6
	MaxLength = 8
)

// Generator produces candidate codes. It makes no uniqueness promise; callers check the store.
type Generator interface {
	Generate() string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() string

func (f GeneratorFunc) Generate() string {
	return f()
}

// RandomGenerator draws the length uniformly from [MinLength, MaxLength] and every
// symbol uniformly from Alphabet.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) Generate() string {
	length := MinLength + randomIndex(MaxLength-MinLength+1)

	b := make([]byte, length)
	for i := range b {
		b[i] = Alphabet[randomIndex(len(Alphabet))]
	}
	return string(b)
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic("shortcode: reading random source: " + err.Error())
	}
	return int(v.Int64())
}
