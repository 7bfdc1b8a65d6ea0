package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gourmet-cart/internal/cart"
	"github.com/angelmondragon/gourmet-cart/pkg/config"
	"github.com/angelmondragon/gourmet-cart/pkg/db"
	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"github.com/angelmondragon/gourmet-cart/pkg/logger"
	"github.com/angelmondragon/gourmet-cart/pkg/migrate"
	"github.com/angelmondragon/gourmet-cart/pkg/redis"
)

// openStore builds the state store selected by cfg.Store.Driver. The returned
// closer is never nil.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cart.StateStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return cart.NewMemoryStore(), noop, nil

	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		dbClient, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
		if err != nil {
			return nil, noop, err
		}
		if err := dbClient.Ping(ctx); err != nil {
			_ = dbClient.Close()
			return nil, noop, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ping cart database")
		}
		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			_ = dbClient.Close()
			return nil, noop, fmt.Errorf("getting sql db handle: %w", err)
		}
		if err := migrate.Up(ctx, sqlDB, cfg.Store.Driver); err != nil {
			_ = dbClient.Close()
			return nil, noop, err
		}
		return cart.NewRepository(dbClient.DB()), dbClient.Close, nil

	case config.StoreDriverRedis:
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, noop, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "connect cart redis")
		}
		return cart.NewRedisStore(redisClient), redisClient.Close, nil
	}
	return nil, noop, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
