package valkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/glyphgate/glyphgate/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

const (
	fieldImage    = "image"
	fieldSolution = "solution"
)

// Store keeps every challenge in one hash with an image and a solution field.
// HSET of both fields runs inside MULTI, guarded by WATCH on the key, so two
// writers racing on one ID can't both win.
type Store struct {
	rdb    *valkey.Client
	prefix string
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) Put(ctx context.Context, id string, image []byte, solution string) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}

	key := s.key(id)

	err := s.rdb.Watch(ctx, func(tx *valkey.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("can't check %q in valkey: %w", key, err)
		}

		if n != 0 {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
		}

		_, err = tx.TxPipelined(ctx, func(pipe valkey.Pipeliner) error {
			pipe.HSet(ctx, key, fieldImage, image, fieldSolution, solution)
			return nil
		})

		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, valkey.TxFailedErr):
		// Someone else wrote the key between WATCH and EXEC.
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
	case errors.Is(err, store.ErrAlreadyExists):
		return err
	default:
		return fmt.Errorf("can't set %q in valkey: %w", key, err)
	}
}

func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(id), fieldImage, fieldSolution).Result()
	if err != nil {
		return nil, fmt.Errorf("can't fetch from valkey: %w", err)
	}

	if len(vals) != 2 {
		return nil, fmt.Errorf("[unexpected] %w: got %d fields", store.ErrCantDecode, len(vals))
	}

	image, hasImage := vals[0].(string)
	solution, hasSolution := vals[1].(string)

	switch {
	case !hasImage && !hasSolution:
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	case !hasImage:
		return nil, fmt.Errorf("%w: %q (image is missing)", store.ErrIncomplete, id)
	case !hasSolution:
		return nil, fmt.Errorf("%w: %q (solution is missing)", store.ErrIncomplete, id)
	}

	return &store.Record{
		Image:    []byte(image),
		Solution: solution,
	}, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("can't check existence in valkey: %w", err)
	}

	return n != 0, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
