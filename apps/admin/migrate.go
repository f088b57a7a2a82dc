package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/practicum/storage/kv/sqlkv"
)

var errNoSQLStorage = errors.New("migrate needs a postgres or sqlite storage")

var migrateFunc = sqlkv.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	store, ok := cli.kv.(*sqlkv.Store)
	if !ok {
		return errNoSQLStorage
	}
	return migrateFunc(context.Background(), store.DB(), store.Driver(), cli.logger, args[0], args[1:]...)
}
