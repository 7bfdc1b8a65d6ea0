package main

import (
	"context"
	"fmt"
	"os"

	"github.com/angelmondragon/gourmet-cart/internal/cart"
	"github.com/angelmondragon/gourmet-cart/internal/console"
	"github.com/angelmondragon/gourmet-cart/pkg/config"
	"github.com/angelmondragon/gourmet-cart/pkg/logger"
	"github.com/angelmondragon/gourmet-cart/pkg/metrics"
	"github.com/angelmondragon/gourmet-cart/pkg/types"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/multierr"
)

const serviceName = "cart"

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: serviceName, Output: os.Stderr})

	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"store": cfg.Store.Driver,
	})

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)

	var dumpMetrics bool
	root := console.NewRootCommand(func(ctx context.Context) (*console.Session, error) {
		store, closeStore, err := openStore(ctx, cfg, logg)
		if err != nil {
			return nil, err
		}
		engine, err := cart.New(cart.Params{
			Store:       store,
			Key:         cfg.Cart.StorageKey,
			DeliveryFee: types.Money(cfg.Cart.DeliveryFee),
			TaxRate:     cfg.Cart.TaxRate(),
			Logger:      logg,
			Metrics:     cartMetrics,
		})
		if err != nil {
			return nil, multierr.Append(err, closeStore())
		}
		engine.Load(ctx)
		return &console.Session{
			Engine:   engine,
			Currency: cfg.Cart.Currency,
			Close: func() error {
				err := closeStore()
				if dumpMetrics {
					err = multierr.Append(err, writeMetrics(registry))
				}
				return err
			},
		}, nil
	})
	root.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print cart metrics to stderr on exit")

	if err := root.ExecuteContext(ctx); err != nil {
		console.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func writeMetrics(registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(os.Stderr, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}
