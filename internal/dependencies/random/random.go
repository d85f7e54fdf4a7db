package random

import (
	"crypto/rand"
	"math/big"
)

// Random is the randomness source behind room-code allocation and word
// draws. Tests swap in a scripted implementation so codes and words come
// out deterministic.
type Random interface {
	// Intn returns a random int in [0, n). Word draws index the sorted
	// lexicon with this.
	Intn(n int) int

	// String generates a random string of the given length from the given
	// alphabet. Room codes are minted with this.
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand, so room codes are not
// guessable from earlier codes
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	result, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		return 0
	}
	return int(result.Int64())
}

// String generates a random string of the given length from the given alphabet
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(result)
}
