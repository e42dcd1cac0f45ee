// SPDX-License-Identifier: Apache-2.0

// Package store defines the control record persisted by the migration engine
// and the contract every backing document store must satisfy.
//
// The control record is a single document recording the currently applied
// version and an advisory run lock. Backends must implement Get, Set and
// AcquireLock as atomic operations: Get lazily creates the record with the
// store's native atomic upsert, AcquireLock is a compare-and-set that only
// succeeds while the record is unlocked. ReleaseLock is deliberately an
// unconditional overwrite so that a lock left behind by a crashed previous
// holder can always be cleared.
package store

import (
	"context"
	"time"
)

// ControlID is the fixed document id of the control record.
const ControlID = "control"

// DefaultCollection is the default collection/bucket/key-prefix holding the
// control record.
const DefaultCollection = "migrations"

// ControlRecord is the single persisted document tracking migration state.
type ControlRecord struct {
	ID       string    `bson:"_id"      json:"id"       yaml:"id"`
	Version  string    `bson:"version"  json:"version"  yaml:"version"`
	Locked   bool      `bson:"locked"   json:"locked"   yaml:"locked"`
	LockedAt time.Time `bson:"lockedAt" json:"lockedAt" yaml:"lockedAt"`

	// LockedBy records the engine instance holding the lock. Diagnostic only;
	// release does not check it.
	LockedBy string `bson:"lockedBy,omitempty" json:"lockedBy,omitempty" yaml:"lockedBy,omitempty"`
}

// Store is the persistence contract for the control record. Implementations
// must be safe for concurrent use from multiple processes sharing the same
// underlying database.
type Store interface {
	// Get fetches the control record, atomically creating it at the store's
	// initial version and unlocked if it does not exist yet.
	Get(ctx context.Context) (ControlRecord, error)

	// Set atomically upserts both the version and the locked flag and returns
	// the written record.
	Set(ctx context.Context, version string, locked bool) (ControlRecord, error)

	// AcquireLock attempts a conditional update flipping locked from false to
	// true with a fresh lockedAt timestamp and the given owner. It returns
	// false without error when the record is already locked.
	AcquireLock(ctx context.Context, owner string) (bool, error)

	// ReleaseLock unconditionally clears the locked flag.
	ReleaseLock(ctx context.Context) error

	// Reset deletes the control record together with every other document in
	// the same collection. Intended for test and development teardown only.
	Reset(ctx context.Context) error

	// Close releases resources held by the store.
	Close(ctx context.Context) error
}

// Conn is the opaque database handle shared by all steps of a run. Steps
// receive it as-is; backends expose their native client through a concrete
// Conn type (for example mongostore.Conn.Database).
type Conn interface {
	// Close releases the underlying connection. force requests an immediate
	// teardown without waiting for in-flight operations.
	Close(ctx context.Context, force bool) error
}
