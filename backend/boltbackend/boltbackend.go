// Package boltbackend implements backend.Backend on top of
// go.etcd.io/bbolt, giving the tile storage a durable, file-mapped byte
// region without a hand-rolled file format. Grounded in the teacher's
// engine/bbolt driver.
package boltbackend

import (
	"encoding/binary"
	"os"

	"go.etcd.io/bbolt"

	"github.com/colstore/tilegroup/backend"
)

var regionsBucket = []byte("regions")

type Backend struct {
	db   *bbolt.DB
	next uint64
}

// Open opens (creating if necessary) a bbolt database at path and returns
// a Backend over it.
func Open(path string) (*Backend, error) {
	db, err := bbolt.Open(path, os.ModePerm, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(regionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	b := &Backend{db: db}
	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(regionsBucket).Cursor()
		if k, _ := c.Last(); k != nil {
			b.next = binary.BigEndian.Uint64(k) + 1
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func key(addr uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, addr)
	return buf
}

func (b *Backend) Allocate(n int) (backend.Region, error) {
	addr := b.next
	b.next++
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(regionsBucket).Put(key(addr), make([]byte, n))
	})
	if err != nil {
		return backend.Region{}, err
	}
	return backend.NewRegion(addr, n), nil
}

func (b *Backend) Read(r backend.Region) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(regionsBucket).Get(key(r.Addr()))
		if v == nil {
			return backend.ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	return out, err
}

func (b *Backend) Write(r backend.Region, buf []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(regionsBucket)
		existing := bkt.Get(key(r.Addr()))
		if existing == nil {
			return backend.ErrNotFound
		}
		merged := make([]byte, len(existing))
		copy(merged, existing)
		copy(merged, buf)
		return bkt.Put(key(r.Addr()), merged)
	})
}

func (b *Backend) Release(r backend.Region) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(regionsBucket).Delete(key(r.Addr()))
	})
}

func (b *Backend) Close() error {
	return b.db.Close()
}
