// Package config provides configuration management for castwave using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 0 // streaming responses must not be write-timed out
	defaultServerIdleTimeout  = 120 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultDNSCacheTTL        = 5 * time.Minute
	defaultDNSCleanupInterval = 1 * time.Minute
	defaultProxyRetryAttempts = 3
	defaultProxyRetryBase     = 1 * time.Second
	defaultProxyUpstreamTotal = 300 * time.Second
	defaultProxyMaxResponse   = 0 // 0 = unlimited
	defaultDiscoveryTimeout   = 2 * time.Second
	defaultCastConnectTimeout = 10 * time.Second
	defaultCastHeartbeat      = 5 * time.Second
	defaultCastLoadRetries    = 3
	defaultCastLoadRetryDelay = 1 * time.Second
	defaultCastLoadKeepAlive  = 3 * time.Second
	defaultCastTransportDelay = 100 * time.Millisecond
	defaultCastStatusDelay    = 1 * time.Second
	defaultMetricsPort        = 9090
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DNSCache  DNSCacheConfig  `mapstructure:"dns_cache"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Cast      CastConfig      `mapstructure:"cast"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP control-surface server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// DNSCacheConfig holds DNS resolver cache configuration (C1).
type DNSCacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ProxyConfig holds HTTP proxy engine configuration (C2/C3).
type ProxyConfig struct {
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	MaxResponseSize ByteSize      `mapstructure:"max_response_size"`
}

// DiscoveryConfig holds mDNS discovery configuration (C4).
type DiscoveryConfig struct {
	BrowseTimeout time.Duration `mapstructure:"browse_timeout"`
}

// CastConfig holds Cast protocol client configuration (C5).
type CastConfig struct {
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval"`
	LoadRetryAttempts    int           `mapstructure:"load_retry_attempts"`
	LoadRetryDelay       time.Duration `mapstructure:"load_retry_delay"`
	KeepAliveAfterLoad   time.Duration `mapstructure:"keepalive_after_load"`
	TransportSettleDelay time.Duration `mapstructure:"transport_settle_delay"`
	StatusSettleDelay    time.Duration `mapstructure:"status_settle_delay"`
}

// MetricsConfig holds the loopback-only metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CASTWAVE_ and use underscores for nesting.
// Example: CASTWAVE_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/castwave")
		v.AddConfigPath("$HOME/.castwave")
	}

	v.SetEnvPrefix("CASTWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerReadTimeout)
	v.SetDefault("server.write_timeout", defaultServerWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultServerIdleTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("dns_cache.ttl", defaultDNSCacheTTL)
	v.SetDefault("dns_cache.cleanup_interval", defaultDNSCleanupInterval)

	v.SetDefault("proxy.retry_attempts", defaultProxyRetryAttempts)
	v.SetDefault("proxy.retry_base_delay", defaultProxyRetryBase)
	v.SetDefault("proxy.upstream_timeout", defaultProxyUpstreamTotal)
	v.SetDefault("proxy.max_response_size", int64(defaultProxyMaxResponse))

	v.SetDefault("discovery.browse_timeout", defaultDiscoveryTimeout)

	v.SetDefault("cast.connect_timeout", defaultCastConnectTimeout)
	v.SetDefault("cast.heartbeat_interval", defaultCastHeartbeat)
	v.SetDefault("cast.load_retry_attempts", defaultCastLoadRetries)
	v.SetDefault("cast.load_retry_delay", defaultCastLoadRetryDelay)
	v.SetDefault("cast.keepalive_after_load", defaultCastLoadKeepAlive)
	v.SetDefault("cast.transport_settle_delay", defaultCastTransportDelay)
	v.SetDefault("cast.status_settle_delay", defaultCastStatusDelay)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.host", "127.0.0.1")
	v.SetDefault("metrics.port", defaultMetricsPort)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Proxy.RetryAttempts < 1 {
		return fmt.Errorf("proxy.retry_attempts must be at least 1")
	}
	if c.Cast.LoadRetryAttempts < 1 {
		return fmt.Errorf("cast.load_retry_attempts must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the metrics listener address in host:port format.
func (c *MetricsConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
