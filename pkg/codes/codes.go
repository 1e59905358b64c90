package codes

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// alphabet deliberately omits 0/O and 1/I so codes survive being read
// aloud or typed from an email.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	giftCardGroupLen  = 4
	giftCardGroups    = 3
	referralSuffixLen = 8
)

// Generator produces human-readable candidate codes. Uniqueness is the
// caller's concern: services re-check against storage and retry a
// bounded number of times.
type Generator struct{}

// NewGenerator returns a code generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// GiftCard returns a code shaped like GC-XXXX-XXXX-XXXX.
func (g *Generator) GiftCard() (string, error) {
	groups := make([]string, 0, giftCardGroups)
	for i := 0; i < giftCardGroups; i++ {
		group, err := randomChars(giftCardGroupLen)
		if err != nil {
			return "", err
		}
		groups = append(groups, group)
	}
	return "GC-" + strings.Join(groups, "-"), nil
}

// Referral returns a code shaped like REF-XXXXXXXX.
func (g *Generator) Referral() (string, error) {
	suffix, err := randomChars(referralSuffixLen)
	if err != nil {
		return "", err
	}
	return "REF-" + suffix, nil
}

func randomChars(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
