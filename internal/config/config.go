// Package config loads the matching core's runtime configuration with
// viper: the redis_* coordinates the durable store dials, the symbols the
// engine starts a worker for, the listen addresses for the order-entry
// adapter and the subscription gateway, and a handful of fields that exist
// only so a deployment's existing config file still parses even though
// this core doesn't use them (secret_key, access_token_expire_minutes).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fenrir-exchange/matchcore/internal/store"
)

// Config is the full recognized option set, plus the core-specific
// additions (symbols, listen addresses) needed to run the binaries in
// cmd/.
type Config struct {
	Symbols []string `mapstructure:"symbols"`

	AdapterAddress string `mapstructure:"adapter_address"`
	AdapterPort    int    `mapstructure:"adapter_port"`
	GatewayAddress string `mapstructure:"gateway_address"`
	MetricsAddress string `mapstructure:"metrics_address"`

	Store string `mapstructure:"store"` // "memory" or "redis"

	RedisHost                 string        `mapstructure:"redis_host"`
	RedisPort                 int           `mapstructure:"redis_port"`
	RedisDB                   int           `mapstructure:"redis_db"`
	RedisPassword             string        `mapstructure:"redis_password"`
	RedisSSL                  bool          `mapstructure:"redis_ssl"`
	RedisMaxConnections       int           `mapstructure:"redis_max_connections"`
	RedisSocketTimeout        time.Duration `mapstructure:"redis_socket_timeout"`
	RedisSocketConnectTimeout time.Duration `mapstructure:"redis_socket_connect_timeout"`

	// Out of scope for this core (auth, CORS) but recognized so an
	// operator's existing config file still parses unchanged.
	SecretKey               string   `mapstructure:"secret_key"`
	AccessTokenExpireMinutes int     `mapstructure:"access_token_expire_minutes"`
	CORSOrigins             []string `mapstructure:"cors_origins"`

	Debug bool `mapstructure:"debug"`
}

// Load reads configPath (if non-empty) plus environment variables
// prefixed MATCHCORE_, falling back to the defaults below when neither
// supplies a value.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/matchcore")
	}

	v.SetEnvPrefix("MATCHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{"BTC-USD", "ETH-USD"})
	v.SetDefault("adapter_address", "0.0.0.0")
	v.SetDefault("adapter_port", 9001)
	v.SetDefault("gateway_address", "0.0.0.0:9002")
	v.SetDefault("metrics_address", "0.0.0.0:9090")

	v.SetDefault("store", "memory")
	v.SetDefault("redis_host", "127.0.0.1")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ssl", false)
	v.SetDefault("redis_max_connections", 20)
	v.SetDefault("redis_socket_timeout", "5s")
	v.SetDefault("redis_socket_connect_timeout", "2s")

	v.SetDefault("access_token_expire_minutes", 60)
	v.SetDefault("debug", false)
}

// RedisConfig projects the recognized redis_* options onto
// store.RedisConfig.
func (c *Config) RedisConfig() store.RedisConfig {
	return store.RedisConfig{
		Host:                 c.RedisHost,
		Port:                 c.RedisPort,
		DB:                   c.RedisDB,
		Password:             c.RedisPassword,
		SSL:                  c.RedisSSL,
		MaxConnections:       c.RedisMaxConnections,
		SocketTimeout:        c.RedisSocketTimeout,
		SocketConnectTimeout: c.RedisSocketConnectTimeout,
	}
}
