// SPDX-License-Identifier: Apache-2.0

// Package boltstore persists the control record in an embedded bbolt database.
//
// bbolt serializes read-write transactions, so every operation here is a
// single Update transaction and the compare-and-set semantics required by
// store.Store hold without any additional coordination. The collection name
// maps to a bolt bucket and the record is stored JSON-encoded under the
// control document id.
package boltstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/docshift/docshift/pkg/fsx"
	"github.com/docshift/docshift/pkg/store"
)

// Options configures a bolt-backed store.
type Options struct {
	// Collection is the bucket holding the control record.
	// Defaults to store.DefaultCollection.
	Collection string

	// InitialVersion is the version the control record is lazily created at,
	// i.e. the zero version of the encoding in use.
	InitialVersion string
}

// Store is a bbolt-backed control record store.
type Store struct {
	db        *bolt.DB
	bucket    []byte
	initial   string
	closeOnce sync.Once
	closeErr  error
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) the bolt database at path.
func Open(path string, opts Options) (*Store, error) {
	if opts.Collection == "" {
		opts.Collection = store.DefaultCollection
	}

	if err := fsx.EnsureDirectory(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bolt database at %s", path)
	}

	return &Store{
		db:      db,
		bucket:  []byte(opts.Collection),
		initial: opts.InitialVersion,
	}, nil
}

// Conn returns the connection handle steps receive during a run.
func (s *Store) Conn() *Conn {
	return &Conn{store: s}
}

// Get fetches the control record, creating it at the initial version if absent.
func (s *Store) Get(_ context.Context) (store.ControlRecord, error) {
	var rec store.ControlRecord

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}

		raw := b.Get([]byte(store.ControlID))
		if raw == nil {
			rec = store.ControlRecord{ID: store.ControlID, Version: s.initial}
			return putRecord(b, rec)
		}

		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return store.ControlRecord{}, store.StorageError.Wrap(err, "failed to read control record")
	}

	return rec, nil
}

// Set upserts version and locked together and returns the written record.
func (s *Store) Set(_ context.Context, version string, locked bool) (store.ControlRecord, error) {
	var rec store.ControlRecord

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, cur, err := s.load(tx)
		if err != nil {
			return err
		}

		cur.Version = version
		cur.Locked = locked
		rec = cur
		return putRecord(b, cur)
	})
	if err != nil {
		return store.ControlRecord{}, store.StorageError.Wrap(err, "failed to write control record")
	}

	return rec, nil
}

// AcquireLock flips locked from false to true. Returns false when contended.
func (s *Store) AcquireLock(_ context.Context, owner string) (bool, error) {
	acquired := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, cur, err := s.load(tx)
		if err != nil {
			return err
		}

		if cur.Locked {
			return nil
		}

		cur.Locked = true
		cur.LockedAt = time.Now().UTC()
		cur.LockedBy = owner
		acquired = true
		return putRecord(b, cur)
	})
	if err != nil {
		return false, store.StorageError.Wrap(err, "failed to acquire migration lock")
	}

	return acquired, nil
}

// ReleaseLock unconditionally clears the locked flag.
func (s *Store) ReleaseLock(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, cur, err := s.load(tx)
		if err != nil {
			return err
		}

		cur.Locked = false
		cur.LockedBy = ""
		return putRecord(b, cur)
	})
	if err != nil {
		return store.StorageError.Wrap(err, "failed to release migration lock")
	}

	return nil
}

// Reset drops the whole bucket, control record included.
func (s *Store) Reset(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return store.StorageError.Wrap(err, "failed to reset migration bucket")
	}

	return nil
}

// Close closes the underlying bolt database. Safe to call more than once.
func (s *Store) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// load reads the current record inside tx, creating it at the initial
// version if absent.
func (s *Store) load(tx *bolt.Tx) (*bolt.Bucket, store.ControlRecord, error) {
	b, err := tx.CreateBucketIfNotExists(s.bucket)
	if err != nil {
		return nil, store.ControlRecord{}, err
	}

	cur := store.ControlRecord{ID: store.ControlID, Version: s.initial}
	if raw := b.Get([]byte(store.ControlID)); raw != nil {
		if err := json.Unmarshal(raw, &cur); err != nil {
			return nil, store.ControlRecord{}, err
		}
	}

	return b, cur, nil
}

func putRecord(b *bolt.Bucket, rec store.ControlRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(store.ControlID), raw)
}

// Conn exposes the bolt database to migration steps.
type Conn struct {
	store *Store
}

var _ store.Conn = (*Conn)(nil)

// DB returns the underlying bolt database handle.
func (c *Conn) DB() *bolt.DB {
	return c.store.db
}

// Close implements store.Conn. bolt has no graceful/forced distinction; both
// paths close the database once.
func (c *Conn) Close(ctx context.Context, _ bool) error {
	return c.store.Close(ctx)
}
