package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

const envPrefix = "PRICING_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Session  SessionConfig  `koanf:"session"`
	Features FeatureFlags   `koanf:"features"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type DatabaseConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	User         string        `koanf:"user"`
	Password     string        `koanf:"password"`
	Name         string        `koanf:"name"`
	SSLMode      string        `koanf:"sslmode"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	MaxLifetime  time.Duration `koanf:"max_lifetime"`
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers       []string `koanf:"brokers"`
	CatalogTopic  string   `koanf:"catalog_topic"`
	ConsumerGroup string   `koanf:"consumer_group"`
	ReplicaID     string   `koanf:"replica_id"`
}

// Replica returns a stable identity for this process: kafka.replica_id when
// set, otherwise the hostname. It must survive restarts so the replica keeps
// reusing one consumer group.
func (k KafkaConfig) Replica() (string, error) {
	if k.ReplicaID != "" {
		return k.ReplicaID, nil
	}
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("kafka.replica_id is unset and hostname is unavailable: %w", err)
	}
	return host, nil
}

// CatalogConfig describes where the base order and promo codes come from.
// With Source "static" the values below are served as-is; with "postgres"
// they only seed an empty database.
type CatalogConfig struct {
	Source      string           `koanf:"source"`
	Subtotal    int64            `koanf:"subtotal"`
	DeliveryFee int64            `koanf:"delivery_fee"`
	ServiceFee  int64            `koanf:"service_fee"`
	Tax         int64            `koanf:"tax"`
	PromoCodes  map[string]int64 `koanf:"promo_codes"`
	LocalTTL    time.Duration    `koanf:"local_ttl"`
}

// Order builds the configured base order. It fails on negative fees,
// non-positive discounts and codes that collide after normalization.
func (c CatalogConfig) Order() (pricing.Order, error) {
	codes := make(map[string]pricing.Amount, len(c.PromoCodes))
	for code, discount := range c.PromoCodes {
		codes[code] = pricing.Amount(discount)
	}
	order, err := pricing.NewOrder(
		pricing.Amount(c.Subtotal),
		pricing.Amount(c.DeliveryFee),
		pricing.Amount(c.ServiceFee),
		pricing.Amount(c.Tax),
		codes,
	)
	if err != nil {
		return pricing.Order{}, fmt.Errorf("catalog: %w", err)
	}
	return order, nil
}

type SessionConfig struct {
	Store string        `koanf:"store"`
	TTL   time.Duration `koanf:"ttl"`
}

type FeatureFlags struct {
	EnableCatalogCache  bool `koanf:"enable_catalog_cache"`
	EnableCatalogEvents bool `koanf:"enable_catalog_events"`
	EnableAdminAPI      bool `koanf:"enable_admin_api"`
	EnableMetrics       bool `koanf:"enable_metrics"`
	EnableDebug         bool `koanf:"enable_debug"`
	AutoMigrate         bool `koanf:"auto_migrate"`
}

const (
	CatalogSourceStatic   = "static"
	CatalogSourcePostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// DefaultPromoCodes are the codes served when no configuration names any.
func DefaultPromoCodes() map[string]int64 {
	return map[string]int64{
		"CHUKS10":     500,
		"WELCOME":     200,
		"NIGERIA2024": 1000,
	}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":             8084,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.shutdown_timeout": "30s",

		"log.level": "info",

		"database.host":           "localhost",
		"database.port":           5432,
		"database.user":           "acme",
		"database.password":       "acme",
		"database.name":           "acme_pricing",
		"database.sslmode":        "disable",
		"database.max_open_conns": 10,
		"database.max_idle_conns": 5,
		"database.max_lifetime":   "5m",

		"redis.host": "localhost",
		"redis.port": 6379,
		"redis.db":   0,
		"redis.ttl":  "5m",

		"kafka.brokers":        []string{"localhost:9092"},
		"kafka.catalog_topic":  "pricing.catalog",
		"kafka.consumer_group": "pricing-service",

		"catalog.source":       CatalogSourceStatic,
		"catalog.subtotal":     9200,
		"catalog.delivery_fee": 500,
		"catalog.service_fee":  200,
		"catalog.tax":          0,
		"catalog.local_ttl":    "30s",

		"session.store": SessionStoreMemory,
		"session.ttl":   "30m",

		"features.enable_catalog_cache":  false,
		"features.enable_catalog_events": false,
		"features.enable_admin_api":      false,
		"features.enable_metrics":        true,
		"features.enable_debug":          false,
		"features.auto_migrate":          false,
	}
}

// Load reads defaults, then the YAML file at path (if non-empty), then
// PRICING_* environment variables. Nested keys use a double underscore:
// PRICING_SERVER__PORT=9000 sets server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Promo codes replace rather than merge, so they are not part of defaults().
	if cfg.Catalog.PromoCodes == nil {
		cfg.Catalog.PromoCodes = DefaultPromoCodes()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// envValue maps PRICING_KAFKA__BROKERS=a:9092,b:9092 to kafka.brokers as a
// list. Values without a comma stay scalar.
func envValue(k, v string) (string, interface{}) {
	key := envKey(k)
	if strings.Contains(v, ",") {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, v
}

// Validate checks the settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogSourceStatic, CatalogSourcePostgres:
	default:
		return fmt.Errorf("catalog.source must be %q or %q, got %q", CatalogSourceStatic, CatalogSourcePostgres, c.Catalog.Source)
	}

	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.Session.Store)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if _, err := c.Catalog.Order(); err != nil {
		return err
	}
	if c.Features.EnableCatalogEvents && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when catalog events are enabled")
	}
	return nil
}
