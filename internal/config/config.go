package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

// ServiceConfig holds the listen address and storage location of one
// business service.
type ServiceConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Port          int    `mapstructure:"port"`
	URL           string `mapstructure:"url"`
	DataFile      string `mapstructure:"data_file"`
}

// Config is the application configuration shared by the gateway and the
// business services. Each binary reads the sections it needs.
type Config struct {
	// Gateway HTTP server configuration
	Gateway struct {
		ListenAddress string `mapstructure:"listen_address"`
		Port          int    `mapstructure:"port"`
	} `mapstructure:"gateway"`

	// Registry store configuration
	Registry struct {
		// SnapshotPath is the flat file the registry is persisted to.
		// Empty disables persistence.
		SnapshotPath string `mapstructure:"snapshot_path"`
		// Address services use to reach the registration API.
		Addr string `mapstructure:"addr"`
		// HeartbeatInterval is how often services push heartbeats.
		HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
		// StalenessWindow marks a record unhealthy when no heartbeat or
		// probe succeeded within it.
		StalenessWindow time.Duration `mapstructure:"staleness_window"`
	} `mapstructure:"registry"`

	// Health monitor configuration
	HealthCheck struct {
		Interval time.Duration `mapstructure:"interval"`
		Timeout  time.Duration `mapstructure:"timeout"`
		Path     string        `mapstructure:"path"`
	} `mapstructure:"health_check"`

	// Circuit breaker configuration
	Breaker struct {
		FailureThreshold int           `mapstructure:"failure_threshold"`
		OpenDuration     time.Duration `mapstructure:"open_duration"`
	} `mapstructure:"breaker"`

	// DNS discovery server configuration
	DNS struct {
		Enabled       bool   `mapstructure:"enabled"`
		ListenAddress string `mapstructure:"listen_address"`
		Port          int    `mapstructure:"port"`
		Protocol      string `mapstructure:"protocol"` // "udp", "tcp" or "both"
		Domain        string `mapstructure:"domain"`
	} `mapstructure:"dns"`

	// Token issuance configuration
	Auth struct {
		Secret   string        `mapstructure:"secret"`
		TokenTTL time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	// Business service configuration
	Services struct {
		User ServiceConfig `mapstructure:"user"`
		Item ServiceConfig `mapstructure:"item"`
		List ServiceConfig `mapstructure:"list"`
	} `mapstructure:"services"`

	// Logging configuration
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
}

// LoadConfig reads the configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/shoplist")
	}
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOPLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &config, nil
}

// Validate checks the loaded configuration for obviously broken values.
func (c *Config) Validate() error {
	if err := validation.Validate(c.Log.Level,
		validation.In("debug", "info", "warn", "error")); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := validation.Validate(c.Gateway.Port,
		validation.Required, validation.Min(1), validation.Max(65535)); err != nil {
		return fmt.Errorf("gateway.port: %w", err)
	}
	if err := validation.Validate(c.Breaker.FailureThreshold,
		validation.Required, validation.Min(1)); err != nil {
		return fmt.Errorf("breaker.failure_threshold: %w", err)
	}
	if err := validation.Validate(c.DNS.Protocol,
		validation.In("udp", "tcp", "both")); err != nil {
		return fmt.Errorf("dns.protocol: %w", err)
	}
	for name, svc := range map[string]ServiceConfig{
		"user": c.Services.User,
		"item": c.Services.Item,
		"list": c.Services.List,
	} {
		if err := validation.Validate(svc.URL, validation.Required, is.URL); err != nil {
			return fmt.Errorf("services.%s.url: %w", name, err)
		}
		if err := validation.Validate(svc.Port,
			validation.Required, validation.Min(1), validation.Max(65535)); err != nil {
			return fmt.Errorf("services.%s.port: %w", name, err)
		}
	}
	return nil
}

// setDefaults applies the design defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.listen_address", "0.0.0.0")
	v.SetDefault("gateway.port", 3000)

	v.SetDefault("registry.snapshot_path", "data/services-registry.json")
	v.SetDefault("registry.addr", "http://localhost:3000")
	v.SetDefault("registry.heartbeat_interval", "10s")
	v.SetDefault("registry.staleness_window", "90s")

	v.SetDefault("health_check.interval", "30s")
	v.SetDefault("health_check.timeout", "5s")
	v.SetDefault("health_check.path", "/health")

	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.open_duration", "30s")

	v.SetDefault("dns.enabled", false)
	v.SetDefault("dns.listen_address", "0.0.0.0")
	v.SetDefault("dns.port", 8600)
	v.SetDefault("dns.protocol", "both")
	v.SetDefault("dns.domain", "service.local")

	v.SetDefault("auth.secret", "shoplist-lab-secret")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("services.user.listen_address", "0.0.0.0")
	v.SetDefault("services.user.port", 3001)
	v.SetDefault("services.user.url", "http://localhost:3001")
	v.SetDefault("services.user.data_file", "data/users.json")

	v.SetDefault("services.list.listen_address", "0.0.0.0")
	v.SetDefault("services.list.port", 3002)
	v.SetDefault("services.list.url", "http://localhost:3002")
	v.SetDefault("services.list.data_file", "data/lists.json")

	v.SetDefault("services.item.listen_address", "0.0.0.0")
	v.SetDefault("services.item.port", 3003)
	v.SetDefault("services.item.url", "http://localhost:3003")
	v.SetDefault("services.item.data_file", "data/items.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
}
