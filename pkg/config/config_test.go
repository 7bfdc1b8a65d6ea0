package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Cart.DeliveryFee != 250 {
		t.Fatalf("expected delivery fee 250, got %d", cfg.Cart.DeliveryFee)
	}
	if !cfg.Cart.TaxRate().Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("expected tax rate 0.08, got %s", cfg.Cart.TaxRate())
	}
	if cfg.Cart.StorageKey != "gourmetCart" {
		t.Fatalf("unexpected storage key %q", cfg.Cart.StorageKey)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if !cfg.App.IsDev() {
		t.Fatalf("expected dev env by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvCartDeliveryFee, "0")
	t.Setenv(EnvCartTaxRate, "0.15")
	t.Setenv(EnvStoreDriver, " Memory ")
	t.Setenv(EnvAppEnv, "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Cart.DeliveryFee != 0 {
		t.Fatalf("expected zero delivery fee, got %d", cfg.Cart.DeliveryFee)
	}
	if cfg.Cart.TaxRate().String() != "0.15" {
		t.Fatalf("unexpected tax rate %s", cfg.Cart.TaxRate())
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Fatalf("driver should be normalized, got %q", cfg.Store.Driver)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected prod env")
	}
}

func TestLoad_RejectsBadCartConstants(t *testing.T) {
	cases := map[string]map[string]string{
		"negative fee":   {EnvCartDeliveryFee: "-1"},
		"rate too large": {EnvCartTaxRate: "1"},
		"negative rate":  {EnvCartTaxRate: "-0.01"},
		"rate not a num": {EnvCartTaxRate: "eight percent"},
		"unknown driver": {EnvStoreDriver: "etcd"},
		"redis no addr":  {EnvStoreDriver: StoreDriverRedis},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected Load to fail")
			}
		})
	}
}

func TestLoad_RedisWithURL(t *testing.T) {
	t.Setenv(EnvStoreDriver, StoreDriverRedis)
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
}
