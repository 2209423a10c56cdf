package store

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrNotFound is returned when the store has no challenge for a given ID.
	ErrNotFound = errors.New("store: challenge not found")

	// ErrAlreadyExists is returned when a challenge is stored under an ID
	// that is already taken. Stores never overwrite an issued challenge.
	ErrAlreadyExists = errors.New("store: challenge already exists")

	// ErrIncomplete is returned when a challenge exists but one of its two
	// artifacts (image or solution) is missing.
	ErrIncomplete = errors.New("store: challenge is incomplete")

	// ErrInvalidID is returned when an ID contains characters a backend
	// can't safely use as a key.
	ErrInvalidID = errors.New("store: invalid challenge id")

	// ErrCantDecode is returned when a store adaptor cannot decode the store format
	// to a value used by the code.
	ErrCantDecode = errors.New("store: can't decode value")

	// ErrCantEncode is returned when a store adaptor cannot encode the value into
	// the format that the store uses.
	ErrCantEncode = errors.New("store: can't encode value")

	// ErrBadConfig is returned when a store adaptor's configuration is invalid.
	ErrBadConfig = errors.New("store: configuration is invalid")
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidID reports whether id is usable as a key by every backend, including
// the filesystem one. IDs must not contain path separators or dots.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// Record is the pair of artifacts recorded for one challenge.
type Record struct {
	Image    []byte
	Solution string
}

// Interface defines the calls glyphgate uses to persist challenges in a local
// or remote datastore. This can be implemented with an in-memory, on-disk, or
// in-database storage backend.
//
// Implementations must make the image and the solution visible together or
// not at all: Get never observes one without the other for a challenge that
// was written through Put.
type Interface interface {
	// Put records the image and solution of a challenge under id. It returns
	// ErrAlreadyExists if id is taken.
	Put(ctx context.Context, id string, image []byte, solution string) error

	// Get returns both artifacts of a challenge, ErrNotFound if the challenge
	// does not exist or ErrIncomplete if only part of it was recorded.
	Get(ctx context.Context, id string) (*Record, error)

	// Exists reports whether anything is recorded under id.
	Exists(ctx context.Context, id string) (bool, error)
}
