// AngelaMos | 2026
// helpers_test.go

package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// flakyStore wraps a MemoryMetadataStore. It fails every call while down is
// set, and writes for identities registered with failFor.
type flakyStore struct {
	*MemoryMetadataStore
	down   atomic.Bool
	writes atomic.Int32
	broken sync.Map
}

func (s *flakyStore) failFor(id string, err error) {
	s.broken.Store(id, err)
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryMetadataStore: NewMemoryMetadataStore()}
}

var errProviderDown = errors.New("provider down")

func (s *flakyStore) PrivateMetadata(ctx context.Context, id string) (map[string]any, error) {
	if s.down.Load() {
		return nil, errProviderDown
	}
	return s.MemoryMetadataStore.PrivateMetadata(ctx, id)
}

func (s *flakyStore) SetPrivateMetadata(ctx context.Context, id string, v map[string]any) error {
	if s.down.Load() {
		return errProviderDown
	}
	if err, ok := s.broken.Load(id); ok {
		return err.(error)
	}
	s.writes.Add(1)
	return s.MemoryMetadataStore.SetPrivateMetadata(ctx, id, v)
}

type directory struct {
	mu      sync.Mutex
	tenants map[string]string
	err     error
}

func (d *directory) TenantIDForIdentity(_ context.Context, id string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	return d.tenants[id], nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
