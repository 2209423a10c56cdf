package challenge

import (
	"errors"
	"fmt"
)

var (
	// ErrBadConfig is the configuration error class: bad alphabet, length or
	// font. It is fatal at startup and never returned at request time.
	ErrBadConfig = errors.New("challenge: configuration is invalid")

	ErrBadLength        = errors.New("challenge: solution length must be at least 1")
	ErrEmptyAlphabet    = errors.New("challenge: alphabet is empty")
	ErrDuplicateSymbol  = errors.New("challenge: alphabet contains a symbol twice")
	ErrWhitespaceSymbol = errors.New("challenge: alphabet contains whitespace")

	// ErrRenderFailure is returned when an image can't be rendered, usually
	// because the font can't be loaded.
	ErrRenderFailure = errors.New("challenge: can't render image")

	// ErrIDCollision is returned when a freshly generated ID is already in
	// use in the store.
	ErrIDCollision = errors.New("challenge: id collision")

	// ErrMalformedID is returned when an ID doesn't follow the
	// <yyyymmdd>-<hhmm>-<suffix> layout.
	ErrMalformedID = errors.New("challenge: malformed id")
)

// Reasons a challenge couldn't be created, used as CreationError.Reason and
// as the metrics label.
const (
	ReasonIDCollision = "idCollision"
	ReasonRender      = "render"
	ReasonStore       = "store"
)

// CreationError is returned by Service.Create. Callers show a generic
// failure; the reason and the wrapped error are for logs.
type CreationError struct {
	Reason string
	Err    error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("challenge: can't create challenge: %s: %v", e.Reason, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}
