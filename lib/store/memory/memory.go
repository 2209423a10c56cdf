package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/glyphgate/glyphgate/lib/store"
)

type factory struct{}

func (factory) Build(context.Context, json.RawMessage) (store.Interface, error) {
	return New(), nil
}

func (factory) Valid(json.RawMessage) error { return nil }

func init() {
	store.Register("memory", factory{})
}

type impl struct {
	lock    sync.RWMutex
	records map[string]store.Record
}

func (i *impl) Put(_ context.Context, id string, image []byte, solution string) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: %q", store.ErrInvalidID, id)
	}

	i.lock.Lock()
	defer i.lock.Unlock()

	if _, ok := i.records[id]; ok {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, id)
	}

	i.records[id] = store.Record{
		Image:    bytes.Clone(image),
		Solution: solution,
	}

	return nil
}

func (i *impl) Get(_ context.Context, id string) (*store.Record, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	rec, ok := i.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, id)
	}

	return &store.Record{
		Image:    bytes.Clone(rec.Image),
		Solution: rec.Solution,
	}, nil
}

func (i *impl) Exists(_ context.Context, id string) (bool, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	_, ok := i.records[id]
	return ok, nil
}

// New creates a simple in-memory store. This will not scale to multiple
// glyphgate instances and loses every challenge on restart.
func New() store.Interface {
	return &impl{
		records: map[string]store.Record{},
	}
}
