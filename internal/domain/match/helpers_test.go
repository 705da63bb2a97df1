package match

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

// naive is the reference every strategy is checked against.
func naive(text, pattern []byte) []int {
	var out []int
	for i := 0; i+len(pattern) <= len(text); i++ {
		if bytes.Equal(text[i:i+len(pattern)], pattern) {
			out = append(out, i)
		}
	}
	return out
}

func assertOffsets(t *testing.T, want, got []int, msgAndArgs ...any) {
	t.Helper()
	if len(want) == 0 {
		assert.Empty(t, got, msgAndArgs...)
		return
	}
	assert.Equal(t, want, got, msgAndArgs...)
}

func randomBytes(r *rand.Rand, n int, alphabet string) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.IntN(len(alphabet))]
	}
	return b
}

// periodicBytes returns u^k v with |u| = period and |v| < period.
func periodicBytes(r *rand.Rand, period, k int, alphabet string) []byte {
	u := randomBytes(r, period, alphabet)
	out := bytes.Repeat(u, k)
	return append(out, u[:r.IntN(period)]...)
}

// randomCase draws a text and a pattern that occurs in it more often than
// chance would give.
func randomCase(r *rand.Rand) (text, pattern []byte) {
	alphabet := []string{"ab", "abc", "abcd"}[r.IntN(3)]
	text = randomBytes(r, 1+r.IntN(400), alphabet)

	switch r.IntN(3) {
	case 0:
		start := r.IntN(len(text))
		end := start + 1 + r.IntN(len(text)-start)
		pattern = bytes.Clone(text[start:end])
	case 1:
		pattern = periodicBytes(r, 1+r.IntN(8), 2+r.IntN(4), alphabet)
		for i := 0; i < 3; i++ {
			at := r.IntN(len(text) + 1)
			text = append(text[:at:at], append(bytes.Clone(pattern), text[at:]...)...)
		}
	default:
		pattern = randomBytes(r, 1+r.IntN(6), alphabet)
	}
	return text, pattern
}
