// SPDX-License-Identifier: Apache-2.0

// Package redistore persists the control record as a Redis hash.
//
// The conditional lock acquisition runs as a Lua script so the read and the
// flip of the locked flag execute atomically on the server. All keys live
// under "<collection>:"; Reset removes every key with that prefix.
package redistore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docshift/docshift/pkg/store"
)

const (
	fieldID       = "id"
	fieldVersion  = "version"
	fieldLocked   = "locked"
	fieldLockedAt = "lockedAt"
	fieldLockedBy = "lockedBy"
)

// initScript creates the control record hash at the initial version if it
// does not exist yet. EXISTS+HSET run atomically inside the script.
var initScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('HSET', KEYS[1], 'id', ARGV[1], 'version', ARGV[2], 'locked', '0')
end
return 1
`)

// acquireScript flips locked from 0 to 1 only when currently unlocked.
var acquireScript = redis.NewScript(`
local locked = redis.call('HGET', KEYS[1], 'locked')
if locked == false or locked == '0' then
  redis.call('HSET', KEYS[1], 'locked', '1', 'lockedAt', ARGV[1], 'lockedBy', ARGV[2])
  return 1
end
return 0
`)

// Options configures a Redis-backed store.
type Options struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Collection is the key prefix holding migration documents.
	// Defaults to store.DefaultCollection.
	Collection string

	// InitialVersion is the version the control record is lazily created at.
	InitialVersion string
}

// Store is a Redis-backed control record store.
type Store struct {
	client  *redis.Client
	prefix  string
	key     string
	initial string
}

var _ store.Store = (*Store)(nil)

// Open connects to the Redis server described by opts.
func Open(opts Options) *Store {
	if opts.Collection == "" {
		opts.Collection = store.DefaultCollection
	}

	return &Store{
		client:  redis.NewClient(&redis.Options{Addr: opts.Addr}),
		prefix:  opts.Collection + ":",
		key:     opts.Collection + ":" + store.ControlID,
		initial: opts.InitialVersion,
	}
}

// Conn returns the connection handle steps receive during a run.
func (s *Store) Conn() *Conn {
	return &Conn{client: s.client}
}

// Get fetches the control record, creating it at the initial version if absent.
func (s *Store) Get(ctx context.Context) (store.ControlRecord, error) {
	if err := initScript.Run(ctx, s.client, []string{s.key}, store.ControlID, s.initial).Err(); err != nil {
		return store.ControlRecord{}, store.StorageError.Wrap(err, "failed to initialize control record")
	}

	return s.read(ctx)
}

// Set upserts version and locked together and returns the written record.
func (s *Store) Set(ctx context.Context, version string, locked bool) (store.ControlRecord, error) {
	fields := map[string]interface{}{
		fieldID:      store.ControlID,
		fieldVersion: version,
		fieldLocked:  boolField(locked),
	}

	if err := s.client.HSet(ctx, s.key, fields).Err(); err != nil {
		return store.ControlRecord{}, store.StorageError.Wrap(err, "failed to write control record")
	}

	return s.read(ctx)
}

// AcquireLock flips locked from false to true. Returns false when contended.
func (s *Store) AcquireLock(ctx context.Context, owner string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	n, err := acquireScript.Run(ctx, s.client, []string{s.key}, now, owner).Int()
	if err != nil {
		return false, store.StorageError.Wrap(err, "failed to acquire migration lock")
	}

	return n == 1, nil
}

// ReleaseLock unconditionally clears the locked flag.
func (s *Store) ReleaseLock(ctx context.Context) error {
	fields := map[string]interface{}{
		fieldLocked:   "0",
		fieldLockedBy: "",
	}

	if err := s.client.HSet(ctx, s.key, fields).Err(); err != nil {
		return store.StorageError.Wrap(err, "failed to release migration lock")
	}

	return nil
}

// Reset removes every key under the collection prefix.
func (s *Store) Reset(ctx context.Context) error {
	keys, err := s.client.Keys(ctx, s.prefix+"*").Result()
	if err != nil {
		return store.StorageError.Wrap(err, "failed to list migration keys")
	}

	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return store.StorageError.Wrap(err, "failed to delete migration keys")
	}

	return nil
}

// Close closes the Redis client.
func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}

func (s *Store) read(ctx context.Context) (store.ControlRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return store.ControlRecord{}, store.StorageError.Wrap(err, "failed to read control record")
	}

	rec := store.ControlRecord{
		ID:       raw[fieldID],
		Version:  raw[fieldVersion],
		Locked:   raw[fieldLocked] == "1",
		LockedBy: raw[fieldLockedBy],
	}

	if ts := raw[fieldLockedAt]; ts != "" {
		at, perr := time.Parse(time.RFC3339Nano, ts)
		if perr != nil {
			return store.ControlRecord{}, store.StorageError.Wrap(perr, "malformed lockedAt timestamp %q", ts)
		}
		rec.LockedAt = at
	}

	return rec, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Conn exposes the Redis client to migration steps.
type Conn struct {
	client *redis.Client
}

var _ store.Conn = (*Conn)(nil)

// Client returns the underlying Redis client.
func (c *Conn) Client() *redis.Client {
	return c.client
}

// Close implements store.Conn. Redis clients tear down immediately; the force
// flag makes no difference here.
func (c *Conn) Close(_ context.Context, _ bool) error {
	return c.client.Close()
}
