// Package memory implements backend.Backend as an in-process, growable
// byte arena, grounded in the teacher's simplest engine drivers (no file
// or database beneath it, just a guarded slice).
package memory

import (
	"sync"

	"github.com/colstore/tilegroup/backend"
)

type Backend struct {
	mu      sync.Mutex
	regions map[uint64][]byte
	next    uint64
}

// New returns an empty memory-backed Backend.
func New() *Backend {
	return &Backend{regions: map[uint64][]byte{}}
}

func (b *Backend) Allocate(n int) (backend.Region, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := b.next
	b.next++
	buf := make([]byte, n)
	b.regions[addr] = buf
	return backend.NewRegion(addr, n), nil
}

func (b *Backend) Read(r backend.Region) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.regions[r.Addr()]
	if !ok {
		return nil, backend.ErrNotFound
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (b *Backend) Write(r backend.Region, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, ok := b.regions[r.Addr()]
	if !ok {
		return backend.ErrNotFound
	}
	copy(dst, buf)
	return nil
}

func (b *Backend) Release(r backend.Region) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.regions, r.Addr())
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regions = map[uint64][]byte{}
	return nil
}
