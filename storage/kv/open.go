// Package kv opens the core.KVStore selected by configuration.
package kv

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/storage/kv/boltkv"
	"github.com/trezcool/practicum/storage/kv/memkv"
	"github.com/trezcool/practicum/storage/kv/rediskv"
	"github.com/trezcool/practicum/storage/kv/sqlkv"
)

// Store is a core.KVStore holding resources.
type Store interface {
	core.KVStore
	Close() error
}

var (
	_ Store = (*memkv.Store)(nil)
	_ Store = (*boltkv.Store)(nil)
	_ Store = (*rediskv.Store)(nil)
	_ Store = (*sqlkv.Store)(nil)
)

// ErrUnknownDriver is returned by Open for an unsupported storage driver.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Open opens the backend of conf.Storage.Driver.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch conf.Storage.Driver {
	case core.StorageMemory:
		return memkv.Open(), nil
	case core.StorageBolt:
		store, err = openBolt(conf.Storage.Path)
	case core.StorageRedis:
		store, err = openRedis(ctx, conf.Redis)
	case core.StoragePostgres:
		store, err = openSQL(ctx, sqlkv.DriverPostgres, conf.Storage.DSN, logger)
	case core.StorageSQLite:
		dsn := conf.Storage.DSN
		if dsn == "" {
			dsn = conf.Storage.Path
		}
		store, err = openSQL(ctx, sqlkv.DriverSQLite, dsn, logger)
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", conf.Storage.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s storage", conf.Storage.Driver)
	}
	return store, nil
}

func openBolt(path string) (Store, error) {
	store, err := boltkv.Open(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openRedis(ctx context.Context, conf core.RedisConfig) (Store, error) {
	store, err := rediskv.Open(ctx, conf.URL, conf.Prefix)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openSQL(ctx context.Context, driver, dsn string, logger core.Logger) (Store, error) {
	store, err := sqlkv.Open(ctx, driver, dsn, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}
