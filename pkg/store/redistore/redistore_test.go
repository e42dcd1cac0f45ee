// SPDX-License-Identifier: Apache-2.0

package redistore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshift/docshift/pkg/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	srv := miniredis.RunT(t)
	s := Open(Options{Addr: srv.Addr(), InitialVersion: "0.0.0"})

	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestGet_CreatesRecordLazily(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, store.ControlID, rec.ID)
	assert.Equal(t, "0.0.0", rec.Version)
	assert.False(t, rec.Locked)
	assert.True(t, rec.LockedAt.IsZero())
}

func TestGet_DoesNotOverwriteExistingRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "1.2.0", false)
	require.NoError(t, err)

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", rec.Version)
}

func TestSet_UpsertsBothFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Set(ctx, "0.2.0", true)
	require.NoError(t, err)

	assert.Equal(t, "0.2.0", rec.Version)
	assert.True(t, rec.Locked)
}

func TestAcquireLock_CompareAndSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx)
	require.NoError(t, err)

	acquired, err := s.AcquireLock(ctx, "owner-a")
	require.NoError(t, err)
	require.True(t, acquired)

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Locked)
	assert.Equal(t, "owner-a", rec.LockedBy)
	assert.False(t, rec.LockedAt.IsZero())

	acquired, err = s.AcquireLock(ctx, "owner-b")
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, s.ReleaseLock(ctx))

	acquired, err = s.AcquireLock(ctx, "owner-b")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestAcquireLock_OnMissingRecord(t *testing.T) {
	s := openTestStore(t)

	// Acquiring before the record exists treats the absent record as
	// unlocked and creates the lock fields.
	acquired, err := s.AcquireLock(context.Background(), "owner-a")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestReset_RemovesCollectionKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "0.3.0", false)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	require.NoError(t, s.Reset(ctx)) // idempotent on empty store

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", rec.Version)
}

func TestOpen_DefaultsCollection(t *testing.T) {
	srv := miniredis.RunT(t)
	s := Open(Options{Addr: srv.Addr(), InitialVersion: "0"})
	defer s.Close(context.Background())

	assert.Equal(t, store.DefaultCollection+":"+store.ControlID, s.key)
}
