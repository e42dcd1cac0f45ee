// SPDX-License-Identifier: Apache-2.0

package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshift/docshift/pkg/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "migrations.db"), Options{InitialVersion: "0"})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestGet_CreatesRecordLazily(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, store.ControlID, rec.ID)
	assert.Equal(t, "0", rec.Version)
	assert.False(t, rec.Locked)

	// A second Get must return the same record, not recreate it.
	_, err = s.Set(ctx, "3", false)
	require.NoError(t, err)

	rec, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", rec.Version)
}

func TestSet_UpsertsBothFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Set(ctx, "2", true)
	require.NoError(t, err)
	assert.Equal(t, "2", rec.Version)
	assert.True(t, rec.Locked)

	rec, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", rec.Version)
	assert.True(t, rec.Locked)
}

func TestAcquireLock_CompareAndSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acquired, err := s.AcquireLock(ctx, "owner-a")
	require.NoError(t, err)
	require.True(t, acquired)

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Locked)
	assert.Equal(t, "owner-a", rec.LockedBy)
	assert.False(t, rec.LockedAt.IsZero())

	// Second acquisition must be refused, not error.
	acquired, err = s.AcquireLock(ctx, "owner-b")
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, s.ReleaseLock(ctx))

	rec, err = s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, rec.Locked)
	assert.Empty(t, rec.LockedBy)

	acquired, err = s.AcquireLock(ctx, "owner-b")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestReleaseLock_IsUnconditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Releasing a never-acquired lock must succeed (stuck-lock recovery).
	require.NoError(t, s.ReleaseLock(ctx))

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, rec.Locked)
}

func TestReset_DropsBucket(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "4", false)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	// Reset on an already-empty store is fine.
	require.NoError(t, s.Reset(ctx))

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", rec.Version)
}

func TestConn_ExposesDatabase(t *testing.T) {
	s := openTestStore(t)

	conn := s.Conn()
	require.NotNil(t, conn.DB())

	require.NoError(t, conn.Close(context.Background(), false))
	// Store.Close after Conn.Close must not double-close.
	require.NoError(t, s.Close(context.Background()))
}

func TestOpen_DefaultsCollection(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "m.db"), Options{InitialVersion: "0.0.0"})
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.Equal(t, []byte(store.DefaultCollection), s.bucket)
}
