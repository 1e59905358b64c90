package codes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGiftCardFormat(t *testing.T) {
	gen := NewGenerator()

	for i := 0; i < 100; i++ {
		code, err := gen.GiftCard()
		require.NoError(t, err)

		parts := strings.Split(code, "-")
		require.Len(t, parts, 4)
		require.Equal(t, "GC", parts[0])
		for _, group := range parts[1:] {
			require.Len(t, group, 4)
			requireAlphabetOnly(t, group)
		}
	}
}

func TestReferralFormat(t *testing.T) {
	gen := NewGenerator()

	code, err := gen.Referral()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, "REF-"))
	require.Len(t, code, len("REF-")+8)
	requireAlphabetOnly(t, strings.TrimPrefix(code, "REF-"))
}

func TestCodesVary(t *testing.T) {
	gen := NewGenerator()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := gen.GiftCard()
		require.NoError(t, err)
		require.False(t, seen[code], "generated a duplicate code in 50 draws")
		seen[code] = true
	}
}

func requireAlphabetOnly(t *testing.T, s string) {
	t.Helper()
	for _, r := range s {
		require.Contains(t, alphabet, string(r), "code %q uses a character outside the alphabet", s)
	}
}
