package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults_Unmarshal(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, defaultDNSCacheTTL, cfg.DNSCache.TTL)
	assert.Equal(t, defaultProxyRetryAttempts, cfg.Proxy.RetryAttempts)
	assert.Equal(t, defaultCastLoadRetries, cfg.Cast.LoadRetryAttempts)
	assert.Equal(t, "127.0.0.1", cfg.Metrics.Host)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 0},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Proxy:   ProxyConfig{RetryAttempts: 3},
		Cast:    CastConfig{LoadRetryAttempts: 3},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "verbose", Format: "text"},
		Proxy:   ProxyConfig{RetryAttempts: 3},
		Cast:    CastConfig{LoadRetryAttempts: 3},
	}
	assert.Error(t, cfg.Validate())
}

func TestServerConfig_Address(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 9999}
	assert.Equal(t, "127.0.0.1:9999", c.Address())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CASTWAVE_SERVER_PORT", "9100")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("CASTWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, 9100, cfg.Server.Port)
}
