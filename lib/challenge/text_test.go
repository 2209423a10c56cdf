package challenge

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewTextGenerator(t *testing.T) {
	for _, tt := range []struct {
		name     string
		length   int
		alphabet string
		err      error
	}{
		{
			name:     "digits",
			length:   4,
			alphabet: Digits,
		},
		{
			name:     "single symbol",
			length:   6,
			alphabet: "x",
		},
		{
			name:     "unicode",
			length:   3,
			alphabet: "αβγδ",
		},
		{
			name:     "zero length",
			length:   0,
			alphabet: Digits,
			err:      ErrBadLength,
		},
		{
			name:     "negative length",
			length:   -1,
			alphabet: Digits,
			err:      ErrBadLength,
		},
		{
			name:     "empty alphabet",
			length:   4,
			alphabet: "",
			err:      ErrEmptyAlphabet,
		},
		{
			name:     "duplicate symbol",
			length:   4,
			alphabet: "0123453",
			err:      ErrDuplicateSymbol,
		},
		{
			name:     "whitespace symbol",
			length:   4,
			alphabet: "01 23",
			err:      ErrWhitespaceSymbol,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewTextGenerator(tt.length, tt.alphabet)
			if !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Fatal("wrong error")
			}

			if tt.err != nil {
				if !errors.Is(err, ErrBadConfig) {
					t.Errorf("wanted error to wrap ErrBadConfig, got: %v", err)
				}
				return
			}

			if g.Length() != tt.length {
				t.Errorf("wanted length %d, got %d", tt.length, g.Length())
			}

			if g.Alphabet() != tt.alphabet {
				t.Errorf("wanted alphabet %q, got %q", tt.alphabet, g.Alphabet())
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	for _, tt := range []struct {
		name     string
		length   int
		alphabet string
	}{
		{name: "digits", length: 4, alphabet: Digits},
		{name: "letters", length: 8, alphabet: Letters},
		{name: "alphanumeric", length: 12, alphabet: Alphanumeric},
		{name: "unicode", length: 5, alphabet: "αβγδ"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewTextGenerator(tt.length, tt.alphabet)
			if err != nil {
				t.Fatal(err)
			}

			rng := rand.New(rand.NewPCG(1, 2))

			for range 256 {
				got := g.Generate(rng)

				if n := utf8.RuneCountInString(got); n != tt.length {
					t.Fatalf("wanted %d symbols, got %d in %q", tt.length, n, got)
				}

				for _, r := range got {
					if !strings.ContainsRune(tt.alphabet, r) {
						t.Fatalf("symbol %q of %q is not in the alphabet", r, got)
					}
				}
			}
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g, err := NewTextGenerator(8, Alphanumeric)
	if err != nil {
		t.Fatal(err)
	}

	a := g.Generate(rand.New(rand.NewPCG(7, 7)))
	b := g.Generate(rand.New(rand.NewPCG(7, 7)))

	if a != b {
		t.Errorf("same seed gave different text: %q vs %q", a, b)
	}
}

func TestGenerateCoversAlphabet(t *testing.T) {
	g, err := NewTextGenerator(1, Digits)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(3, 4))
	seen := map[string]int{}

	for range 10_000 {
		seen[g.Generate(rng)]++
	}

	for _, r := range Digits {
		n := seen[string(r)]
		// Each digit is expected about 1000 times.
		if n < 800 || n > 1200 {
			t.Errorf("digit %q drawn %d times out of 10000", r, n)
		}
	}
}
