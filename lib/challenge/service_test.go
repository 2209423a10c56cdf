package challenge_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/glyphgate/glyphgate/lib/challenge"
	"github.com/glyphgate/glyphgate/lib/challenge/challengetest"
	"github.com/glyphgate/glyphgate/lib/store"
	"github.com/glyphgate/glyphgate/lib/store/filesystem"
	"github.com/glyphgate/glyphgate/lib/store/memory"
)

func TestNewRequiresDependencies(t *testing.T) {
	_, err := challenge.New(challenge.Options{})
	if !errors.Is(err, challenge.ErrBadConfig) {
		t.Errorf("wanted ErrBadConfig, got: %v", err)
	}
}

func TestCreate(t *testing.T) {
	st := memory.New()
	svc := challengetest.New(t, challenge.Options{Store: st})

	chall, err := svc.Create(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if !challenge.ValidID(chall.ID) {
		t.Errorf("malformed id %q", chall.ID)
	}

	created, err := challenge.ParseIDTime(chall.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !created.Equal(challengetest.Epoch) {
		t.Errorf("wanted id timestamp %s, got %s", challengetest.Epoch, created)
	}

	if len(chall.Image) == 0 {
		t.Error("no image returned")
	}

	rec, err := st.Get(t.Context(), chall.ID)
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.Solution) != 4 {
		t.Errorf("wanted a 4 digit solution, got %q", rec.Solution)
	}

	img, err := svc.Image(t.Context(), chall.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(img) != string(chall.Image) {
		t.Error("stored image differs from the returned one")
	}
}

func TestVerify(t *testing.T) {
	st := memory.New()
	svc := challengetest.New(t, challenge.Options{Store: st})

	chall, err := svc.Create(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	solution := challengetest.Solution(t, st, chall.ID)

	wrong := "0000"
	if solution == wrong {
		wrong = "1111"
	}

	for _, tt := range []struct {
		name   string
		id     string
		answer string
		want   challenge.Verdict
	}{
		{
			name:   "correct",
			id:     chall.ID,
			answer: solution,
			want:   challenge.Correct,
		},
		{
			name:   "correct with surrounding whitespace",
			id:     chall.ID,
			answer: "  " + solution + "\n",
			want:   challenge.Correct,
		},
		{
			name:   "wrong",
			id:     chall.ID,
			answer: wrong,
			want:   challenge.Wrong,
		},
		{
			name:   "prefix of the solution",
			id:     chall.ID,
			answer: solution[:3],
			want:   challenge.Wrong,
		},
		{
			name:   "missing answer",
			id:     chall.ID,
			answer: "",
			want:   challenge.MissingParameters,
		},
		{
			name:   "blank answer",
			id:     chall.ID,
			answer: "   ",
			want:   challenge.MissingParameters,
		},
		{
			name:   "missing id",
			id:     "",
			answer: solution,
			want:   challenge.MissingParameters,
		},
		{
			name:   "unknown id",
			id:     "20240101-1200-abcd1234",
			answer: solution,
			want:   challenge.UnknownChallenge,
		},
		{
			name:   "path traversal id",
			id:     "../../etc",
			answer: solution,
			want:   challenge.UnknownChallenge,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Verify(t.Context(), tt.id, tt.answer)
			if err != nil {
				t.Fatal(err)
			}

			if got != tt.want {
				t.Errorf("wanted verdict %s, got %s", tt.want, got)
			}
		})
	}
}

func TestVerifyIsRepeatable(t *testing.T) {
	st := memory.New()
	svc := challengetest.New(t, challenge.Options{Store: st})

	chall, err := svc.Create(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	solution := challengetest.Solution(t, st, chall.ID)

	for i := range 3 {
		got, err := svc.Verify(t.Context(), chall.ID, solution)
		if err != nil {
			t.Fatal(err)
		}
		if got != challenge.Correct {
			t.Errorf("attempt %d: wanted correct, got %s", i, got)
		}
	}
}

func TestVerifyIsCaseSensitive(t *testing.T) {
	text, err := challenge.NewTextGenerator(6, "abcdefghij")
	if err != nil {
		t.Fatal(err)
	}

	st := memory.New()
	svc := challengetest.New(t, challenge.Options{Store: st, Text: text})

	chall, err := svc.Create(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	solution := challengetest.Solution(t, st, chall.ID)

	upper := ""
	for _, r := range solution {
		upper += string(r - 'a' + 'A')
	}

	got, err := svc.Verify(t.Context(), chall.ID, upper)
	if err != nil {
		t.Fatal(err)
	}
	if got != challenge.Wrong {
		t.Errorf("wanted wrong for %q against %q, got %s", upper, solution, got)
	}
}

func TestVerifyIncomplete(t *testing.T) {
	dir := t.TempDir()
	st, err := filesystem.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	svc := challengetest.New(t, challenge.Options{Store: st})

	chall, err := svc.Create(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(st.AnswerPath(chall.ID)); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Verify(t.Context(), chall.ID, "1234")
	if err != nil {
		t.Fatal(err)
	}
	if got != challenge.IncompleteChallenge {
		t.Errorf("wanted incomplete, got %s", got)
	}

	if _, err := svc.Image(t.Context(), chall.ID); !errors.Is(err, store.ErrIncomplete) {
		t.Errorf("wanted ErrIncomplete from Image, got: %v", err)
	}
}

func TestCreateCollision(t *testing.T) {
	const id = "20240101-1200-deadbeef"

	st := memory.New()
	svc := challengetest.New(t, challenge.Options{
		Store: st,
		NewID: func(time.Time) string { return id },
	})

	if _, err := svc.Create(t.Context()); err != nil {
		t.Fatal(err)
	}

	before := challengetest.Solution(t, st, id)

	_, err := svc.Create(t.Context())

	var cerr *challenge.CreationError
	if !errors.As(err, &cerr) {
		t.Fatalf("wanted a CreationError, got: %v", err)
	}
	if cerr.Reason != challenge.ReasonIDCollision {
		t.Errorf("wanted reason %s, got %s", challenge.ReasonIDCollision, cerr.Reason)
	}
	if !errors.Is(err, challenge.ErrIDCollision) {
		t.Errorf("wanted ErrIDCollision, got: %v", err)
	}

	if after := challengetest.Solution(t, st, id); after != before {
		t.Errorf("collision replaced the solution: %q -> %q", before, after)
	}
}

type failingStore struct {
	store.Interface
	err error
}

func (f failingStore) Exists(context.Context, string) (bool, error) {
	return false, f.err
}

func TestStoreFailures(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := challengetest.New(t, challenge.Options{Store: failingStore{Interface: memory.New(), err: boom}})

	_, err := svc.Create(t.Context())
	var cerr *challenge.CreationError
	if !errors.As(err, &cerr) || cerr.Reason != challenge.ReasonStore {
		t.Errorf("wanted a store CreationError, got: %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("wanted the store error to be wrapped, got: %v", err)
	}

	if _, err := svc.Verify(t.Context(), "20240101-1200-abcd1234", "1234"); !errors.Is(err, boom) {
		t.Errorf("wanted Verify to surface the store error, got: %v", err)
	}
}

func TestCreateConcurrent(t *testing.T) {
	st := memory.New()
	svc := challengetest.New(t, challenge.Options{
		Store: st,
		Rand:  challenge.CryptoSeededRand,
		Now:   time.Now,
	})

	const n = 32

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()

			chall, err := svc.Create(t.Context())
			if err != nil {
				t.Error(err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			ids[chall.ID] = struct{}{}
		}()
	}

	wg.Wait()

	if len(ids) != n {
		t.Errorf("wanted %d distinct challenges, got %d", n, len(ids))
	}

	for id := range ids {
		solution := challengetest.Solution(t, st, id)
		got, err := svc.Verify(t.Context(), id, solution)
		if err != nil {
			t.Fatal(err)
		}
		if got != challenge.Correct {
			t.Errorf("%s: wanted correct, got %s", id, got)
		}
	}
}

// The round trip from the reference deployment: issue, answer correctly,
// answer wrongly, then ask about something that was never issued.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := filesystem.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	svc := challengetest.New(t, challenge.Options{Store: st, Noise: true})

	chall, err := svc.Create(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{st.ImagePath(chall.ID), st.AnswerPath(chall.ID)} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	}

	solution := challengetest.Solution(t, st, chall.ID)

	for _, tt := range []struct {
		id, answer string
		want       challenge.Verdict
	}{
		{id: chall.ID, answer: solution, want: challenge.Correct},
		{id: chall.ID, answer: solution + "x", want: challenge.Wrong},
		{id: "20000101-0000-00000000", answer: solution, want: challenge.UnknownChallenge},
	} {
		got, err := svc.Verify(t.Context(), tt.id, tt.answer)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Verify(%q, %q) = %s, want %s", tt.id, tt.answer, got, tt.want)
		}
	}
}
