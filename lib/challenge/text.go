package challenge

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
)

// Alphabet presets.
const (
	Digits       = "0123456789"
	Letters      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	Alphanumeric = Letters + Digits
)

// TextGenerator produces captcha solutions of a fixed length from a fixed
// alphabet. It holds no mutable state and is safe for concurrent use as long
// as every caller brings its own random source.
type TextGenerator struct {
	length   int
	alphabet []rune
}

// NewTextGenerator validates length and alphabet. Every error it returns
// wraps ErrBadConfig.
func NewTextGenerator(length int, alphabet string) (*TextGenerator, error) {
	var errs []error

	if length < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrBadLength, length))
	}

	symbols := []rune(alphabet)
	if len(symbols) == 0 {
		errs = append(errs, ErrEmptyAlphabet)
	}

	seen := make(map[rune]struct{}, len(symbols))
	for _, r := range symbols {
		if unicode.IsSpace(r) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrWhitespaceSymbol, r))
			continue
		}

		if _, ok := seen[r]; ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateSymbol, r))
			continue
		}
		seen[r] = struct{}{}
	}

	if len(errs) != 0 {
		return nil, fmt.Errorf("%w: %w", ErrBadConfig, errors.Join(errs...))
	}

	return &TextGenerator{
		length:   length,
		alphabet: symbols,
	}, nil
}

// Generate returns Length() symbols, each drawn independently and uniformly
// from the alphabet.
func (g *TextGenerator) Generate(rng *rand.Rand) string {
	var sb strings.Builder
	sb.Grow(g.length)

	for range g.length {
		sb.WriteRune(g.alphabet[rng.IntN(len(g.alphabet))])
	}

	return sb.String()
}

func (g *TextGenerator) Length() int { return g.length }

func (g *TextGenerator) Alphabet() string { return string(g.alphabet) }
