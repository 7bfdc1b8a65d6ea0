package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App   AppConfig
	Cart  CartConfig
	Store StoreConfig
	DB    DBConfig
	Redis RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Driver == StoreDriverRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("either %s or %s is required for the redis store", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GOURMET_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"GOURMET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GOURMET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CartConfig holds the per-session constants of the cart. They are never persisted.
type CartConfig struct {
	DeliveryFee int64  `envconfig:"GOURMET_CART_DELIVERY_FEE" default:"250"`
	TaxRateRaw  string `envconfig:"GOURMET_CART_TAX_RATE" default:"0.08"`
	Currency    string `envconfig:"GOURMET_CART_CURRENCY" default:"LKR"`
	StorageKey  string `envconfig:"GOURMET_CART_STORAGE_KEY" default:"gourmetCart"`

	taxRate decimal.Decimal
}

// TaxRate returns the parsed tax rate. Only valid after Load.
func (c CartConfig) TaxRate() decimal.Decimal {
	return c.taxRate
}

func (c *CartConfig) validate() error {
	if c.DeliveryFee < 0 {
		return fmt.Errorf("%s must be non-negative", EnvCartDeliveryFee)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRateRaw))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvCartTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1), got %s", EnvCartTaxRate, rate.String())
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("%s must not be empty", EnvCartStorageKey)
	}
	c.taxRate = rate
	return nil
}

type StoreConfig struct {
	Driver string `envconfig:"GOURMET_STORE_DRIVER" default:"sqlite"`
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StoreDriverMemory, StoreDriverSQLite, StoreDriverPostgres, StoreDriverRedis:
		return nil
	}
	return fmt.Errorf("unknown %s %q", EnvStoreDriver, s.Driver)
}

type DBConfig struct {
	DSN string `envconfig:"GOURMET_DB_DSN" default:"gourmet-cart.db"`

	MaxOpenConns    int           `envconfig:"GOURMET_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"GOURMET_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"GOURMET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOURMET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOURMET_REDIS_URL"`
	Address      string        `envconfig:"GOURMET_REDIS_ADDR"`
	Password     string        `envconfig:"GOURMET_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOURMET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOURMET_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"GOURMET_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"GOURMET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOURMET_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"GOURMET_REDIS_WRITE_TIMEOUT" default:"3s"`
}
