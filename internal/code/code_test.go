package code

import (
	"strings"
	"testing"
)

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		c := Generate()
		if len(c) != Length {
			t.Fatalf("want %d chars, got %q", Length, c)
		}
		for _, r := range c {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("character %q outside alphabet in %q", r, c)
			}
		}
	}
}

func TestAlphabet_ExcludesAmbiguousCharacters(t *testing.T) {
	for _, r := range "IO01" {
		if strings.ContainsRune(Alphabet, r) {
			t.Fatalf("alphabet must not contain %q", r)
		}
	}
}
