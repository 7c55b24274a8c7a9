package wallet

import (
	"strings"
	"testing"
)

func TestGenerateMnemonic(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		phrase, err := GenerateMnemonic()
		if err != nil {
			t.Fatalf("GenerateMnemonic: %v", err)
		}
		if got := len(strings.Fields(phrase)); got != 12 {
			t.Fatalf("word count = %d, want 12", got)
		}
		if !ValidateMnemonic(phrase) {
			t.Fatalf("generated phrase fails validation: %q", phrase)
		}
		if seen[phrase] {
			t.Fatal("generated the same phrase twice")
		}
		seen[phrase] = true
	}
}

func TestValidateMnemonic(t *testing.T) {
	cases := []struct {
		phrase string
		want   bool
	}{
		{testPhraseA, true},
		{testPhraseB, true},
		{"", false},
		{"abandon", false},
		// Right words, wrong checksum.
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", false},
		{"zzzz zzzz zzzz zzzz zzzz zzzz zzzz zzzz zzzz zzzz zzzz zzzz", false},
	}
	for _, tc := range cases {
		if got := ValidateMnemonic(tc.phrase); got != tc.want {
			t.Errorf("ValidateMnemonic(%q) = %v, want %v", tc.phrase, got, tc.want)
		}
	}
}
