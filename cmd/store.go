package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/circulars-cli/internal/store"
)

// initStore opens the configured store and migrates it.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "circulars.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
