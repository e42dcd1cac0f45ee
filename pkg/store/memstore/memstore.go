// SPDX-License-Identifier: Apache-2.0

// Package memstore provides an in-memory store.Store for tests and
// single-process development use. It honours the same atomicity contract as
// the persistent backends by serializing every operation behind one mutex.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/docshift/docshift/pkg/store"
)

// Store is an in-memory control record store. The zero value is not usable;
// call New.
type Store struct {
	mu      sync.Mutex
	initial string
	record  store.ControlRecord
	exists  bool
	closed  bool
}

// compile-time interface checks
var (
	_ store.Store = (*Store)(nil)
	_ store.Conn  = Conn{}
)

// Conn is a no-op connection handle for steps running against the in-memory
// store. Steps that need real state should close over it themselves.
type Conn struct{}

// Close implements store.Conn.
func (Conn) Close(context.Context, bool) error { return nil }

// New creates an empty in-memory store. initialVersion is the version the
// control record is lazily created at, i.e. the zero version of the encoding
// in use ("0.0.0" or "0").
func New(initialVersion string) *Store {
	return &Store{initial: initialVersion}
}

// Get returns the control record, creating it at the initial version if absent.
func (s *Store) Get(_ context.Context) (store.ControlRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return store.ControlRecord{}, err
	}

	s.ensureRecord()
	return s.record, nil
}

// Set upserts version and locked together and returns the written record.
func (s *Store) Set(_ context.Context, version string, locked bool) (store.ControlRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return store.ControlRecord{}, err
	}

	s.ensureRecord()
	s.record.Version = version
	s.record.Locked = locked
	return s.record, nil
}

// AcquireLock flips locked from false to true. Returns false when contended.
func (s *Store) AcquireLock(_ context.Context, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return false, err
	}

	s.ensureRecord()
	if s.record.Locked {
		return false, nil
	}

	s.record.Locked = true
	s.record.LockedAt = time.Now().UTC()
	s.record.LockedBy = owner
	return true, nil
}

// ReleaseLock unconditionally clears the locked flag.
func (s *Store) ReleaseLock(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	s.ensureRecord()
	s.record.Locked = false
	s.record.LockedBy = ""
	return nil
}

// Reset drops the control record.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	s.record = store.ControlRecord{}
	s.exists = false
	return nil
}

// Close marks the store closed; all further operations fail.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *Store) ensureOpen() error {
	if s.closed {
		return store.StorageError.New("memstore is closed")
	}
	return nil
}

func (s *Store) ensureRecord() {
	if !s.exists {
		s.record = store.ControlRecord{
			ID:      store.ControlID,
			Version: s.initial,
		}
		s.exists = true
	}
}
