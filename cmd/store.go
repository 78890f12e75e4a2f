package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/e164networks/e164bill/internal/runlog"
	"github.com/e164networks/e164bill/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "e164bill.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if err := cfg.Store.ResolveCredentials(); err != nil {
			return nil, err
		}
		poolCfg := store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &poolCfg)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initRunLog returns the run audit log when the store supports it. SQLite
// runs are local and return nil.
func initRunLog(st store.Store) *runlog.Log {
	if ps, ok := st.(*store.PostgresStore); ok {
		return runlog.New(ps.Pool())
	}
	return nil
}
