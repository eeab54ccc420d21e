package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, CatalogSourceStatic, cfg.Catalog.Source)
	assert.Equal(t, int64(9200), cfg.Catalog.Subtotal)
	assert.Equal(t, int64(500), cfg.Catalog.DeliveryFee)
	assert.Equal(t, int64(200), cfg.Catalog.ServiceFee)
	assert.Equal(t, int64(0), cfg.Catalog.Tax)
	assert.Equal(t, DefaultPromoCodes(), cfg.Catalog.PromoCodes)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9000
catalog:
  subtotal: 1000
  promo_codes:
    SPRING: 150
session:
  ttl: 10m
`), 0o600)
	require.NoError(t, err)

	t.Setenv("PRICING_CATALOG__TAX", "75")
	t.Setenv("PRICING_SESSION__STORE", "redis")
	t.Setenv("PRICING_KAFKA__BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(1000), cfg.Catalog.Subtotal)
	assert.Equal(t, int64(500), cfg.Catalog.DeliveryFee)
	assert.Equal(t, int64(75), cfg.Catalog.Tax)
	assert.Equal(t, map[string]int64{"SPRING": 150}, cfg.Catalog.PromoCodes)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvLists(t *testing.T) {
	t.Setenv("PRICING_KAFKA__BROKERS", "a:9092, b:9092 ,c:9092")
	t.Setenv("PRICING_KAFKA__CATALOG_TOPIC", "pricing.catalog.v2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "pricing.catalog.v2", cfg.Kafka.CatalogTopic)
}

func TestEnvValue(t *testing.T) {
	key, value := envValue("PRICING_SERVER__PORT", "9000")
	assert.Equal(t, "server.port", key)
	assert.Equal(t, "9000", value)

	key, value = envValue("PRICING_KAFKA__BROKERS", "k1:9092,k2:9092")
	assert.Equal(t, "kafka.brokers", key)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, value)
}

func TestKafkaConfig_Replica(t *testing.T) {
	id, err := KafkaConfig{ReplicaID: "pricing-0"}.Replica()
	require.NoError(t, err)
	assert.Equal(t, "pricing-0", id)

	host, err := os.Hostname()
	require.NoError(t, err)
	id, err = KafkaConfig{}.Replica()
	require.NoError(t, err)
	assert.Equal(t, host, id)

	again, err := KafkaConfig{}.Replica()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown catalog source", func(c *Config) { c.Catalog.Source = "mongo" }},
		{"unknown session store", func(c *Config) { c.Session.Store = "cookie" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"events without brokers", func(c *Config) {
			c.Features.EnableCatalogEvents = true
			c.Kafka.Brokers = nil
		}},
		{"negative delivery fee", func(c *Config) { c.Catalog.DeliveryFee = -1 }},
		{"zero discount", func(c *Config) { c.Catalog.PromoCodes = map[string]int64{"FREE": 0} }},
		{"colliding codes", func(c *Config) {
			c.Catalog.PromoCodes = map[string]int64{"spring": 100, "SPRING": 200}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCatalogConfig_Order(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	order, err := cfg.Catalog.Order()
	require.NoError(t, err)
	assert.EqualValues(t, 9200, order.Subtotal)
	assert.EqualValues(t, 500, order.DeliveryFee)
	assert.EqualValues(t, 200, order.ServiceFee)
	assert.EqualValues(t, 0, order.Tax)
	assert.Equal(t, []string{"CHUKS10", "NIGERIA2024", "WELCOME"}, order.Codes())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", d.ConnectionString())
}
