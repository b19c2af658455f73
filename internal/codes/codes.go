// Package codes handles the short human-shareable identifiers that select
// a room.
package codes

import (
	"crypto/rand"
	"log"
	"math/big"
	"strings"
	"unicode"
)

// MinLength is the shortest normalized code the server will accept.
const MinLength = 6

// alphabet drops 0/O and 1/I so codes survive being read aloud.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Normalize trims a code, strips interior whitespace and upper-cases it.
// Two codes that normalize equal select the same room.
func Normalize(code string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(code) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Valid reports whether a code still identifies a room after normalization.
func Valid(code string) bool {
	return len(Normalize(code)) >= MinLength
}

// Generate returns a fresh random code of the given length, minimum 6.
func Generate(length int) string {
	if length < MinLength {
		length = MinLength
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(alphabet[randomIndex(len(alphabet))])
	}
	return b.String()
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("failed to generate random index:", err)
	}
	return int(n.Int64())
}
