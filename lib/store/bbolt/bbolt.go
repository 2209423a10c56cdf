package bbolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glyphgate/glyphgate/lib/store"
	"go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"
)

var (
	keyImage     = []byte("image")
	keySolution  = []byte("solution")
	keyCreatedAt = []byte("createdAt")
)

// Store implements store.Interface backed by bbolt[1].
//
// bbolt is a hierarchical key/value store where every value belongs to a
// bucket. glyphgate gives each challenge its own bucket named after the
// challenge ID with three keys:
//
// 1. image - The rendered PNG
// 2. solution - The plaintext solution
// 3. createdAt - When the challenge was written, as a time.RFC3339Nano timestamp
//
// All three keys are written in the same read-write transaction, so a
// challenge bucket is either complete or absent.
//
// bbolt is not suitable for environments where multiple instances of
// glyphgate need to read from and write to the same backend store. For that,
// use the valkey or postgres storage backends.
//
// [1]: https://github.com/etcd-io/bbolt
type Store struct {
	bdb *bbolt.DB
	now func() time.Time
}

// Put creates the bucket for a challenge and writes both artifacts to it.
func (s *Store) Put(ctx context.Context, id string, image []byte, solution string) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucket([]byte(id))
		if errors.Is(err, bberrors.ErrBucketExists) {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
		}
		if err != nil {
			return fmt.Errorf("%w: %w: %q (create bucket)", store.ErrCantEncode, err, id)
		}

		if err := bkt.Put(keyImage, image); err != nil {
			return fmt.Errorf("%w: %q (image)", store.ErrCantEncode, id)
		}

		if err := bkt.Put(keySolution, []byte(solution)); err != nil {
			return fmt.Errorf("%w: %q (solution)", store.ErrCantEncode, id)
		}

		if err := bkt.Put(keyCreatedAt, []byte(s.now().Format(time.RFC3339Nano))); err != nil {
			return fmt.Errorf("%w: %q (createdAt)", store.ErrCantEncode, id)
		}

		return nil
	})
}

// Get reads both artifacts of a challenge. Values returned by bbolt are only
// valid for the life of the transaction, so they are copied out.
func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	var result store.Record

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(id))
		if bkt == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, id)
		}

		image := bkt.Get(keyImage)
		if image == nil {
			return fmt.Errorf("[unexpected] %w: %q (image is nil)", store.ErrIncomplete, id)
		}

		solution := bkt.Get(keySolution)
		if solution == nil {
			return fmt.Errorf("[unexpected] %w: %q (solution is nil)", store.ErrIncomplete, id)
		}

		result.Image = make([]byte, len(image))
		copy(result.Image, image)
		result.Solution = string(solution)

		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool

	err := s.bdb.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket([]byte(id)) != nil
		return nil
	})

	return ok, err
}

// CreatedAt returns when a challenge was written to the database.
func (s *Store) CreatedAt(ctx context.Context, id string) (time.Time, error) {
	var result time.Time

	err := s.bdb.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(id))
		if bkt == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, id)
		}

		val := bkt.Get(keyCreatedAt)
		if val == nil {
			return fmt.Errorf("[unexpected] %w: %q (createdAt is nil)", store.ErrIncomplete, id)
		}

		t, err := time.Parse(time.RFC3339Nano, string(val))
		if err != nil {
			return fmt.Errorf("[unexpected] %w: %w", store.ErrCantDecode, err)
		}

		result = t
		return nil
	})

	return result, err
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.bdb.Close()
}
