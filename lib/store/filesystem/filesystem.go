package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glyphgate/glyphgate"
	"github.com/glyphgate/glyphgate/lib/store"
)

const stagingPrefix = ".staging-"

// Store implements store.Interface on top of a plain directory tree.
//
// Every challenge gets its own folder named after its ID, holding two files:
//
//  1. <id>.png - the rendered image
//  2. <id>.ans - the plaintext solution
//
// Both files are first written into a hidden staging folder next to the
// final one. The staging folder is then renamed into place. rename(2) of a
// directory is atomic and fails if the target already exists with content,
// so readers either see the complete challenge or nothing, and an issued
// challenge is never replaced.
type Store struct {
	root string
}

// Open makes sure root exists and is writable, removes staging folders left
// behind by a previous crash and returns a Store for it.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("filesystem: can't create %s: %w", root, err)
	}

	probe := filepath.Join(root, ".test-file")
	if err := os.WriteFile(probe, []byte(""), 0o600); err != nil {
		return nil, fmt.Errorf("filesystem: can't write to %s: %w", root, err)
	}
	os.Remove(probe)

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("filesystem: can't list %s: %w", root, err)
	}

	for _, ent := range entries {
		if strings.HasPrefix(ent.Name(), stagingPrefix) {
			slog.Warn("removing stale staging folder", "path", filepath.Join(root, ent.Name()))
			os.RemoveAll(filepath.Join(root, ent.Name()))
		}
	}

	return &Store{root: root}, nil
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.root, id)
}

// ImagePath returns the on-disk location of the image of a challenge.
func (s *Store) ImagePath(id string) string {
	return filepath.Join(s.dir(id), id+glyphgate.ImageExtension)
}

// AnswerPath returns the on-disk location of the solution of a challenge.
func (s *Store) AnswerPath(id string) string {
	return filepath.Join(s.dir(id), id+glyphgate.AnswerExtension)
}

func (s *Store) Put(ctx context.Context, id string, image []byte, solution string) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}

	if ok, err := s.Exists(ctx, id); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
	}

	staging, err := os.MkdirTemp(s.root, stagingPrefix+id+"-")
	if err != nil {
		return fmt.Errorf("%w: %q (staging folder): %w", store.ErrCantEncode, id, err)
	}
	// After a successful rename the staging path no longer exists and this
	// is a no-op.
	defer os.RemoveAll(staging)

	if err := writeFileSync(filepath.Join(staging, id+glyphgate.ImageExtension), image); err != nil {
		return fmt.Errorf("%w: %q (image): %w", store.ErrCantEncode, id, err)
	}

	if err := writeFileSync(filepath.Join(staging, id+glyphgate.AnswerExtension), []byte(solution)); err != nil {
		return fmt.Errorf("%w: %q (answer): %w", store.ErrCantEncode, id, err)
	}

	if err := os.Rename(staging, s.dir(id)); err != nil {
		// EEXIST and ENOTEMPTY both match fs.ErrExist.
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
		}

		return fmt.Errorf("%w: %q (publish): %w", store.ErrCantEncode, id, err)
	}

	return nil
}

func (s *Store) Get(_ context.Context, id string) (*store.Record, error) {
	if !store.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	}

	st, err := os.Stat(s.dir(id))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	case err != nil:
		return nil, fmt.Errorf("filesystem: can't stat challenge %q: %w", id, err)
	case !st.IsDir():
		return nil, fmt.Errorf("%w: %q (not a folder)", store.ErrIncomplete, id)
	}

	image, err := readArtifact(s.ImagePath(id))
	if err != nil {
		return nil, fmt.Errorf("%w (image): %q", err, id)
	}

	answer, err := readArtifact(s.AnswerPath(id))
	if err != nil {
		return nil, fmt.Errorf("%w (answer): %q", err, id)
	}

	return &store.Record{
		Image:    image,
		Solution: string(answer),
	}, nil
}

func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	if !store.ValidID(id) {
		return false, nil
	}

	_, err := os.Stat(s.dir(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("filesystem: can't stat challenge %q: %w", id, err)
	}
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrIncomplete
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrCantDecode, err)
	}

	return data, nil
}

func writeFileSync(path string, data []byte) error {
	fout, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if _, err := fout.Write(data); err != nil {
		fout.Close()
		return err
	}

	if err := fout.Sync(); err != nil {
		fout.Close()
		return err
	}

	return fout.Close()
}
