package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/glyphgate/glyphgate/lib/store"
)

var (
	ErrMissingPath = errors.New("filesystem: path is missing from config")
	ErrNotADir     = errors.New("filesystem: path exists and is not a directory")
)

func init() {
	store.Register("filesystem", Factory{})
}

// Factory builds new instances of the filesystem storage backend according to
// configuration passed via a json.RawMessage.
type Factory struct{}

// Build parses and validates the filesystem Config, creates the root folder
// if needed and returns a Store rooted there.
func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	var config Config
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return Open(config.Path)
}

// Valid parses and validates the filesystem store Config or returns an error.
func (Factory) Valid(data json.RawMessage) error {
	var config Config
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return nil
}

// Config is the filesystem storage backend configuration.
type Config struct {
	// Path is the folder challenges are written to, one subfolder per
	// challenge. It is created on startup if it doesn't exist.
	Path string `json:"path"`
}

func (c Config) Valid() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, ErrMissingPath)
	} else if st, err := os.Stat(c.Path); err == nil && !st.IsDir() {
		errs = append(errs, fmt.Errorf("%w: %s", ErrNotADir, c.Path))
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}
