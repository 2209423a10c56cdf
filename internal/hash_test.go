package internal

import (
	"bytes"
	"testing"
)

func TestFastHash(t *testing.T) {
	a := FastHash([]byte("\x89PNG one"))
	b := FastHash([]byte("\x89PNG two"))

	if a == b {
		t.Errorf("wanted different hashes for different input, got %s twice", a)
	}

	if a != FastHash([]byte("\x89PNG one")) {
		t.Error("FastHash is not stable")
	}
}

func BenchmarkFastHash(b *testing.B) {
	img := bytes.Repeat([]byte{0xff}, 200*200*4)

	for b.Loop() {
		FastHash(img)
	}
}
