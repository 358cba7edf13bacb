package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoConfigFilePresent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Symbols)
	assert.Equal(t, "0.0.0.0", cfg.AdapterAddress)
	assert.Equal(t, 9001, cfg.AdapterPort)
	assert.Equal(t, "0.0.0.0:9002", cfg.GatewayAddress)
	assert.Equal(t, "0.0.0.0:9090", cfg.MetricsAddress)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "127.0.0.1", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Equal(t, 5*time.Second, cfg.RedisSocketTimeout)
	assert.Equal(t, 2*time.Second, cfg.RedisSocketConnectTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("MATCHCORE_STORE", "redis")
	t.Setenv("MATCHCORE_REDIS_HOST", "redis.internal")
	t.Setenv("MATCHCORE_DEBUG", "true")

	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "redis.internal", cfg.RedisHost)
	assert.True(t, cfg.Debug)
}

func TestConfig_RedisConfigProjectsRecognizedFields(t *testing.T) {
	cfg := &Config{
		RedisHost:                 "cache",
		RedisPort:                 6380,
		RedisDB:                   2,
		RedisPassword:             "secret",
		RedisSSL:                  true,
		RedisMaxConnections:       50,
		RedisSocketTimeout:        3 * time.Second,
		RedisSocketConnectTimeout: time.Second,
	}

	rc := cfg.RedisConfig()
	assert.Equal(t, "cache", rc.Host)
	assert.Equal(t, 6380, rc.Port)
	assert.Equal(t, 2, rc.DB)
	assert.Equal(t, "secret", rc.Password)
	assert.True(t, rc.SSL)
	assert.Equal(t, 50, rc.MaxConnections)
	assert.Equal(t, 3*time.Second, rc.SocketTimeout)
	assert.Equal(t, time.Second, rc.SocketConnectTimeout)
}
