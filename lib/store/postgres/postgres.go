package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glyphgate/glyphgate/lib/store"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE postgres reports for a duplicate key.
const uniqueViolation pq.ErrorCode = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS captcha_challenges (
    id         TEXT PRIMARY KEY,
    image      BYTEA NOT NULL,
    solution   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store keeps one row per challenge. Both artifacts are columns of the same
// row and are NOT NULL, so a challenge is visible in full or not at all.
type Store struct {
	db *sqlx.DB
}

type row struct {
	Image    []byte `db:"image"`
	Solution string `db:"solution"`
}

// NewStore connects to dsn and creates the challenges table if needed.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't connect to postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("can't create captcha_challenges table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Put(ctx context.Context, id string, image []byte, solution string) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO captcha_challenges (id, image, solution) VALUES ($1, $2, $3)`,
		id, image, solution,
	)

	var pqErr *pq.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
	default:
		return fmt.Errorf("%w: %q: %w", store.ErrCantEncode, id, err)
	}
}

func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	var r row

	err := s.db.GetContext(ctx, &r, `SELECT image, solution FROM captcha_challenges WHERE id = $1`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	case err != nil:
		return nil, fmt.Errorf("can't fetch challenge %q from postgres: %w", id, err)
	}

	return &store.Record{
		Image:    r.Image,
		Solution: r.Solution,
	}, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool

	if err := s.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM captcha_challenges WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("can't check challenge %q in postgres: %w", id, err)
	}

	return ok, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
