// SPDX-License-Identifier: Apache-2.0

// Package mongostore persists the control record in a MongoDB collection.
//
// All mutations go through single-document atomic operations: Get and Set use
// FindOneAndUpdate with upsert, lock acquisition is a conditional UpdateOne
// matching {locked: false}. This relies on MongoDB's linearizable conditional
// document updates on a single primary; no server-side transactions are used.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/docshift/docshift/pkg/store"
)

// Options configures a MongoDB-backed store.
type Options struct {
	// URL is the mongodb:// connection string.
	URL string

	// Database is the database holding the migration collection.
	Database string

	// Collection holds the control record. Defaults to store.DefaultCollection.
	Collection string

	// InitialVersion is the version the control record is lazily created at.
	InitialVersion string

	// ConnectTimeout bounds the initial connect and ping. Zero means 10s.
	ConnectTimeout time.Duration
}

// Store is a MongoDB-backed control record store.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	coll    *mongo.Collection
	initial string
}

var _ store.Store = (*Store)(nil)

// Open connects to MongoDB and pings the primary before returning.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Collection == "" {
		opts.Collection = store.DefaultCollection
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URL))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", opts.URL)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrapf(err, "failed to ping %s", opts.URL)
	}

	db := client.Database(opts.Database)
	return &Store{
		client:  client,
		db:      db,
		coll:    db.Collection(opts.Collection),
		initial: opts.InitialVersion,
	}, nil
}

// Conn returns the connection handle steps receive during a run.
func (s *Store) Conn() *Conn {
	return &Conn{client: s.client, db: s.db}
}

// Get fetches the control record, atomically creating it at the initial
// version if absent.
func (s *Store) Get(ctx context.Context) (store.ControlRecord, error) {
	update := bson.M{"$setOnInsert": bson.M{
		"version": s.initial,
		"locked":  false,
	}}

	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": store.ControlID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	return decodeRecord(res, "failed to read control record")
}

// Set atomically upserts version and locked together and returns the written
// record.
func (s *Store) Set(ctx context.Context, version string, locked bool) (store.ControlRecord, error) {
	update := bson.M{"$set": bson.M{
		"version": version,
		"locked":  locked,
	}}

	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": store.ControlID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	return decodeRecord(res, "failed to write control record")
}

// AcquireLock performs a conditional update matching only an unlocked record.
// A zero-match result means another holder owns the lock.
func (s *Store) AcquireLock(ctx context.Context, owner string) (bool, error) {
	update := bson.M{"$set": bson.M{
		"locked":   true,
		"lockedAt": time.Now().UTC(),
		"lockedBy": owner,
	}}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": store.ControlID, "locked": false},
		update,
	)
	if err != nil {
		if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return false, store.NotAcknowledgedError.Wrap(err, "lock acquisition was not acknowledged")
		}
		return false, store.StorageError.Wrap(err, "failed to acquire migration lock")
	}

	return res.MatchedCount == 1, nil
}

// ReleaseLock unconditionally clears the locked flag, upserting the record so
// release always succeeds.
func (s *Store) ReleaseLock(ctx context.Context) error {
	update := bson.M{"$set": bson.M{
		"locked":   false,
		"lockedBy": "",
	}}

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": store.ControlID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return store.StorageError.Wrap(err, "failed to release migration lock")
	}

	return nil
}

// Reset drops the whole collection, control record included.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.coll.Drop(ctx); err != nil {
		return store.StorageError.Wrap(err, "failed to drop migration collection")
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func decodeRecord(res *mongo.SingleResult, msg string) (store.ControlRecord, error) {
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return store.ControlRecord{}, store.NotAcknowledgedError.Wrap(err, "%s", msg)
		}
		return store.ControlRecord{}, store.StorageError.Wrap(err, "%s", msg)
	}

	var rec store.ControlRecord
	if err := res.Decode(&rec); err != nil {
		return store.ControlRecord{}, store.StorageError.Wrap(err, "%s", msg)
	}

	return rec, nil
}

// Conn exposes the MongoDB handles to migration steps.
type Conn struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Conn = (*Conn)(nil)

// Database returns the database the migration steps operate on.
func (c *Conn) Database() *mongo.Database {
	return c.db
}

// Client returns the underlying client, for steps that need sessions or
// cross-database access.
func (c *Conn) Client() *mongo.Client {
	return c.client
}

// Close implements store.Conn. A forced close bounds the disconnect with a
// short deadline instead of waiting for in-flight operations.
func (c *Conn) Close(ctx context.Context, force bool) error {
	if force {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second)
		defer cancel()
	}
	return c.client.Disconnect(ctx)
}
