package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

// Config represents the broadcaster CLI configuration
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Debug   bool          `mapstructure:"debug"`
}

// BrokerConfig contains broker connection and namespace settings
type BrokerConfig struct {
	URL                 string        `mapstructure:"url"`
	ID                  string        `mapstructure:"id"` // empty means a random UUID per process
	ReconnectionTimeout time.Duration `mapstructure:"reconnection_timeout"`
	Codec               string        `mapstructure:"codec"` // json or yaml
}

// MetricsConfig contains Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Load loads configuration from an optional config file and environment
// variables. An empty path searches the default locations.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("broadcaster")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/broadcaster")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("BROADCASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

func setDefaults(v *viper.Viper) {
	// Broker defaults
	v.SetDefault("broker.url", broadcaster.DefaultURL)
	v.SetDefault("broker.id", "")
	v.SetDefault("broker.reconnection_timeout", broadcaster.DefaultReconnectionTimeout.String())
	v.SetDefault("broker.codec", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "broadcaster")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Broker.Validate(); err != nil {
		return fmt.Errorf("broker configuration error: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration error: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing configuration error: %w", err)
	}
	return nil
}

// Validate validates broker configuration
func (bc *BrokerConfig) Validate() error {
	if bc.URL == "" {
		return fmt.Errorf("broker url cannot be empty")
	}
	if bc.ReconnectionTimeout <= 0 {
		return fmt.Errorf("reconnection_timeout must be positive")
	}
	if _, err := broadcaster.CodecByName(bc.Codec); err != nil {
		return err
	}
	return nil
}

// Options converts the broker settings into broadcaster options. The
// dialer is left to the caller.
func (bc *BrokerConfig) Options() ([]broadcaster.Option, error) {
	codec, err := broadcaster.CodecByName(bc.Codec)
	if err != nil {
		return nil, err
	}

	opts := []broadcaster.Option{
		broadcaster.WithURL(bc.URL),
		broadcaster.WithReconnectionTimeout(bc.ReconnectionTimeout),
		broadcaster.WithCodec(codec),
	}
	if bc.ID != "" {
		opts = append(opts, broadcaster.WithID(bc.ID))
	}
	return opts, nil
}

// Validate validates metrics configuration
func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if mc.Address == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	if !strings.HasPrefix(mc.Path, "/") {
		return fmt.Errorf("metrics path must start with '/'")
	}
	return nil
}

// Validate validates tracing configuration
func (tc *TracingConfig) Validate() error {
	if !tc.Enabled {
		return nil
	}
	if tc.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0.0 and 1.0")
	}
	return nil
}
