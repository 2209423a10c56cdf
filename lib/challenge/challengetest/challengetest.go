package challengetest

import (
	"testing"
	"time"

	"github.com/glyphgate/glyphgate/lib/challenge"
	"github.com/glyphgate/glyphgate/lib/store"
	"github.com/glyphgate/glyphgate/lib/store/memory"
)

// Epoch is the fixed clock used by New.
var Epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// New returns a Service over a fresh in-memory store with a seeded random
// source and a fixed clock, so tests get reproducible solutions and images.
// Options set in opts override the defaults.
func New(t *testing.T, opts challenge.Options) *challenge.Service {
	t.Helper()

	if opts.Store == nil {
		opts.Store = memory.New()
	}

	if opts.Text == nil {
		text, err := challenge.NewTextGenerator(4, challenge.Digits)
		if err != nil {
			t.Fatal(err)
		}
		opts.Text = text
	}

	if opts.Renderer == nil {
		r, err := challenge.NewRenderer(challenge.DefaultRenderOptions())
		if err != nil {
			t.Fatal(err)
		}
		opts.Renderer = r
	}

	if opts.Rand == nil {
		opts.Rand = challenge.SeededRand(42)
	}

	if opts.Now == nil {
		opts.Now = func() time.Time { return Epoch }
	}

	svc, err := challenge.New(opts)
	if err != nil {
		t.Fatal(err)
	}

	return svc
}

// Solution reads the recorded solution of id straight from st.
func Solution(t *testing.T, st store.Interface, id string) string {
	t.Helper()

	rec, err := st.Get(t.Context(), id)
	if err != nil {
		t.Fatalf("can't read challenge %s: %v", id, err)
	}

	return rec.Solution
}
