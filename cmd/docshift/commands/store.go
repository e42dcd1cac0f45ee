// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/docshift/docshift/internal/config"
	"github.com/docshift/docshift/pkg/store"
	"github.com/docshift/docshift/pkg/store/boltstore"
	"github.com/docshift/docshift/pkg/store/memstore"
	"github.com/docshift/docshift/pkg/store/mongostore"
	"github.com/docshift/docshift/pkg/store/redistore"
	"github.com/docshift/docshift/pkg/version"
)

// openStore builds the control record store selected by the loaded
// configuration. The record, when absent, is created at the zero version of
// the configured encoding.
func openStore(ctx context.Context) (store.Store, error) {
	enc, err := version.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	initial := version.Zero(enc).String()

	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memstore.New(initial), nil

	case config.DriverBolt:
		return boltstore.Open(cfg.Store.Path, boltstore.Options{
			Collection:     cfg.Store.Collection,
			InitialVersion: initial,
		})

	case config.DriverRedis:
		return redistore.Open(redistore.Options{
			Addr:           cfg.Store.URL,
			Collection:     cfg.Store.Collection,
			InitialVersion: initial,
		}), nil

	case config.DriverMongo:
		return mongostore.Open(ctx, mongostore.Options{
			URL:            cfg.Store.URL,
			Database:       cfg.Store.Database,
			Collection:     cfg.Store.Collection,
			InitialVersion: initial,
		})

	default:
		return nil, config.InvalidError.New("unknown store driver %q", cfg.Store.Driver)
	}
}

// withStore opens the configured store, runs fn and closes the store again.
func withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := st.Close(ctx); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close store")
		}
	}()

	return fn(st)
}
