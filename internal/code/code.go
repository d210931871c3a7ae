package code

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
)

// Alphabet deliberately excludes I, O, 0 and 1 so codes survive being
// read aloud or copied from a projector.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of every join code.
const Length = 6

// Generate returns a random join code. Uniqueness is the caller's
// problem; this only consumes entropy.
func Generate() string {
	out := make([]byte, Length)
	for i := range out {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			// fall back to math/rand if crypto fails
			out[i] = Alphabet[rand.Intn(len(Alphabet))]
			continue
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out)
}
