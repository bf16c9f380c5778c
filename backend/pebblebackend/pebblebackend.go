// Package pebblebackend implements backend.Backend on top of
// github.com/cockroachdb/pebble, used as the NVM-style variant: Pebble's
// LSM tree is addressed with a fixed key per allocation, giving a
// byte-addressable region backed by flash/NVM rather than DRAM. Grounded
// in the teacher's storage/kvrows pebble driver.
package pebblebackend

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/pebble"

	"github.com/colstore/tilegroup/backend"
)

type Backend struct {
	db   *pebble.DB
	next uint64
}

// Open opens (creating if necessary) a Pebble database at dataDir.
func Open(dataDir string) (*Backend, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dataDir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func key(addr uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, addr)
	return buf
}

func (b *Backend) Allocate(n int) (backend.Region, error) {
	addr := b.next
	b.next++
	if err := b.db.Set(key(addr), make([]byte, n), pebble.Sync); err != nil {
		return backend.Region{}, err
	}
	return backend.NewRegion(addr, n), nil
}

func (b *Backend) Read(r backend.Region) ([]byte, error) {
	v, closer, err := b.db.Get(key(r.Addr()))
	if err == pebble.ErrNotFound {
		return nil, backend.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *Backend) Write(r backend.Region, buf []byte) error {
	existing, err := b.Read(r)
	if err != nil {
		return err
	}
	copy(existing, buf)
	return b.db.Set(key(r.Addr()), existing, pebble.Sync)
}

func (b *Backend) Release(r backend.Region) error {
	return b.db.Delete(key(r.Addr()), pebble.Sync)
}

func (b *Backend) Close() error {
	return b.db.Close()
}
