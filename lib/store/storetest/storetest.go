package storetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glyphgate/glyphgate/lib/store"
	"github.com/google/uuid"
)

// NewID returns a fresh ID that is valid for every backend.
func NewID(t *testing.T) string {
	t.Helper()

	return "storetest-" + uuid.NewString()
}

func Common(t *testing.T, f store.Factory, config json.RawMessage) {
	if err := f.Valid(config); err != nil {
		t.Fatal(err)
	}

	s, err := f.Build(t.Context(), config)
	if err != nil {
		t.Fatal(err)
	}

	if c, ok := s.(io.Closer); ok {
		t.Cleanup(func() { c.Close() })
	}

	image := []byte("\x89PNG\r\n\x1a\nnot really a png")

	for _, tt := range []struct {
		name string
		doer func(t *testing.T, s store.Interface) error
		err  error
	}{
		{
			name: "basic put get exists",
			doer: func(t *testing.T, s store.Interface) error {
				id := NewID(t)

				if _, err := s.Get(t.Context(), id); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted %s to not exist in store but got: %v", id, err)
				}

				ok, err := s.Exists(t.Context(), id)
				if err != nil {
					return err
				}
				if ok {
					t.Errorf("wanted Exists(%s) to be false before Put", id)
				}

				if err := s.Put(t.Context(), id, image, "4821"); err != nil {
					return err
				}

				ok, err = s.Exists(t.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					t.Errorf("wanted Exists(%s) to be true after Put", id)
				}

				rec, err := s.Get(t.Context(), id)
				if err != nil {
					return err
				}

				if !bytes.Equal(rec.Image, image) {
					t.Logf("want: %q", image)
					t.Logf("got:  %q", rec.Image)
					t.Error("wrong image returned")
				}

				if rec.Solution != "4821" {
					t.Logf("want: %q", "4821")
					t.Logf("got:  %q", rec.Solution)
					t.Error("wrong solution returned")
				}

				return nil
			},
		},
		{
			name: "put refuses to overwrite",
			doer: func(t *testing.T, s store.Interface) error {
				id := NewID(t)

				if err := s.Put(t.Context(), id, image, "1111"); err != nil {
					return err
				}

				if err := s.Put(t.Context(), id, []byte("other"), "2222"); !errors.Is(err, store.ErrAlreadyExists) {
					t.Errorf("wanted ErrAlreadyExists on second Put, got: %v", err)
				}

				rec, err := s.Get(t.Context(), id)
				if err != nil {
					return err
				}

				if rec.Solution != "1111" || !bytes.Equal(rec.Image, image) {
					t.Errorf("original challenge was modified: solution=%q", rec.Solution)
				}

				return nil
			},
		},
		{
			name: "concurrent puts of one id",
			doer: func(t *testing.T, s store.Interface) error {
				id := NewID(t)

				var (
					wg        sync.WaitGroup
					successes atomic.Int32
					errs      = make(chan error, 8)
				)

				for range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						err := s.Put(t.Context(), id, image, "9999")
						switch {
						case err == nil:
							successes.Add(1)
						case errors.Is(err, store.ErrAlreadyExists):
						default:
							errs <- err
						}
					}()
				}

				wg.Wait()
				close(errs)

				if err, ok := <-errs; ok {
					return err
				}

				if n := successes.Load(); n != 1 {
					t.Errorf("wanted exactly one successful Put, got %d", n)
				}

				return nil
			},
		},
		{
			name: "reads racing a put see nothing or everything",
			doer: func(t *testing.T, s store.Interface) error {
				id := NewID(t)

				var (
					wg   sync.WaitGroup
					errs = make(chan error, 8)
				)

				for range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for range 50 {
							rec, err := s.Get(t.Context(), id)
							switch {
							case errors.Is(err, store.ErrNotFound):
							case err != nil:
								errs <- err
								return
							case rec.Solution != "5678" || !bytes.Equal(rec.Image, image):
								t.Errorf("read a partial challenge: solution=%q, image=%d bytes", rec.Solution, len(rec.Image))
								return
							}
						}
					}()
				}

				putErr := s.Put(t.Context(), id, image, "5678")

				wg.Wait()
				close(errs)

				if putErr != nil {
					return putErr
				}

				if err, ok := <-errs; ok {
					return err
				}

				return nil
			},
		},
		{
			name: "repeated reads are identical",
			doer: func(t *testing.T, s store.Interface) error {
				id := NewID(t)

				if err := s.Put(t.Context(), id, image, "0420"); err != nil {
					return err
				}

				var wg sync.WaitGroup
				for range 4 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						rec, err := s.Get(t.Context(), id)
						if err != nil {
							t.Error(err)
							return
						}
						if rec.Solution != "0420" {
							t.Errorf("wanted solution 0420, got %q", rec.Solution)
						}
					}()
				}
				wg.Wait()

				return nil
			},
		},
		{
			name: "invalid id",
			doer: func(t *testing.T, s store.Interface) error {
				return s.Put(t.Context(), "../escape", image, "0000")
			},
			err: store.ErrInvalidID,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.doer(t, s); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}
