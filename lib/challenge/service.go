package challenge

import (
	"context"
	crand "crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/glyphgate/glyphgate/lib/store"
)

// Options configures a Service. Store, Text and Renderer are required.
type Options struct {
	Store    store.Interface
	Text     *TextGenerator
	Renderer *Renderer

	// Noise turns on visual noise in rendered images. It is off by default.
	Noise bool

	// Rand returns the random source used for one challenge. Each call must
	// return a source that is not shared with other goroutines. Defaults to
	// a ChaCha8 source seeded from crypto/rand.
	Rand func() *rand.Rand

	// Now defaults to time.Now.
	Now func() time.Time

	// NewID defaults to NewID.
	NewID func(time.Time) string
}

// Service issues and verifies challenges. It keeps no state of its own
// besides the store, so it is safe for concurrent use.
type Service struct {
	store    store.Interface
	text     *TextGenerator
	renderer *Renderer
	noise    bool
	rand     func() *rand.Rand
	now      func() time.Time
	newID    func(time.Time) string
}

func New(opts Options) (*Service, error) {
	var errs []error

	if opts.Store == nil {
		errs = append(errs, errors.New("challenge: no store configured"))
	}
	if opts.Text == nil {
		errs = append(errs, errors.New("challenge: no text generator configured"))
	}
	if opts.Renderer == nil {
		errs = append(errs, errors.New("challenge: no renderer configured"))
	}

	if len(errs) != 0 {
		return nil, fmt.Errorf("%w: %w", ErrBadConfig, errors.Join(errs...))
	}

	result := &Service{
		store:    opts.Store,
		text:     opts.Text,
		renderer: opts.Renderer,
		noise:    opts.Noise,
		rand:     opts.Rand,
		now:      opts.Now,
		newID:    opts.NewID,
	}

	if result.rand == nil {
		result.rand = CryptoSeededRand
	}
	if result.now == nil {
		result.now = time.Now
	}
	if result.newID == nil {
		result.newID = NewID
	}

	return result, nil
}

// CryptoSeededRand returns a ChaCha8 generator seeded from crypto/rand.
func CryptoSeededRand() *rand.Rand {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms.
	crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// SeededRand returns a Rand option producing PCG sources with consecutive
// seeds starting at seed. It is not safe for concurrent use and exists for
// tests and reproducible tooling.
func SeededRand(seed uint64) func() *rand.Rand {
	next := seed
	return func() *rand.Rand {
		result := rand.New(rand.NewPCG(seed, next))
		next++
		return result
	}
}

// Noise reports whether rendered images carry visual noise.
func (s *Service) Noise() bool { return s.noise }

// Create issues a new challenge: it picks an ID, makes sure it is free,
// generates and renders a solution and records both in the store. The
// returned Challenge carries the image but never the solution.
func (s *Service) Create(ctx context.Context) (*Challenge, error) {
	now := s.now()
	id := s.newID(now)

	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return nil, s.fail(ReasonStore, err)
	}
	if exists {
		return nil, s.fail(ReasonIDCollision, fmt.Errorf("%w: %q", ErrIDCollision, id))
	}

	rng := s.rand()
	solution := s.text.Generate(rng)

	image, err := s.renderer.Render(solution, s.noise, rng)
	if err != nil {
		return nil, s.fail(ReasonRender, err)
	}

	if err := s.store.Put(ctx, id, image, solution); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, s.fail(ReasonIDCollision, fmt.Errorf("%w: %w", ErrIDCollision, err))
		}
		return nil, s.fail(ReasonStore, err)
	}

	challengesIssued.Inc()

	return &Challenge{
		ID:        id,
		Image:     image,
		CreatedAt: now,
	}, nil
}

func (s *Service) fail(reason string, err error) error {
	creationFailures.WithLabelValues(reason).Inc()
	return &CreationError{Reason: reason, Err: err}
}

// Verify checks answer against the solution recorded for id. Both sides are
// trimmed of surrounding whitespace and then compared exactly, case
// included. Verification does not consume the challenge.
//
// The error is only non-nil when the store itself fails; every domain
// outcome is a Verdict.
func (s *Service) Verify(ctx context.Context, id, answer string) (Verdict, error) {
	answer = strings.TrimSpace(answer)

	// A whitespace-only answer is treated as absent rather than wrong.
	if id == "" || answer == "" {
		return s.verdict(MissingParameters), nil
	}

	if !store.ValidID(id) {
		return s.verdict(UnknownChallenge), nil
	}

	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("challenge: can't look up %q: %w", id, err)
	}
	if !exists {
		return s.verdict(UnknownChallenge), nil
	}

	rec, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.verdict(UnknownChallenge), nil
	case errors.Is(err, store.ErrIncomplete):
		return s.verdict(IncompleteChallenge), nil
	case err != nil:
		return 0, fmt.Errorf("challenge: can't read %q: %w", id, err)
	}

	want := strings.TrimSpace(rec.Solution)
	if subtle.ConstantTimeCompare([]byte(want), []byte(answer)) == 1 {
		return s.verdict(Correct), nil
	}

	return s.verdict(Wrong), nil
}

func (s *Service) verdict(v Verdict) Verdict {
	challengesValidated.WithLabelValues(v.String()).Inc()
	return v
}

// Image returns the rendered image of a challenge. It fails with
// store.ErrNotFound or store.ErrIncomplete like the store does.
func (s *Service) Image(ctx context.Context, id string) ([]byte, error) {
	if !store.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return rec.Image, nil
}
