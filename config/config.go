package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Backend       BackendConfig
	OpenFoodFacts OpenFoodFactsConfig
	UPCItemDB     UPCItemDBConfig
	Cache         CacheConfig
	Scan          ScanConfig
	Camera        CameraConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig points at the pantry REST backend
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenFoodFactsConfig holds Open Food Facts API configuration
type OpenFoodFactsConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	Language      string  `mapstructure:"language"`
	UserAgent     string  `mapstructure:"user_agent"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// UPCItemDBConfig holds the optional UPCitemdb source configuration
type UPCItemDBConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// CacheConfig holds name cache configuration
type CacheConfig struct {
	Type string `mapstructure:"type"` // "memory" or "sqlite"
	Path string `mapstructure:"path"`
}

// ScanConfig tunes scan confirmation and background name resolution
type ScanConfig struct {
	StabilityThreshold int           `mapstructure:"stability_threshold"`
	RenameTimeout      time.Duration `mapstructure:"rename_timeout"`
	RenameInterval     time.Duration `mapstructure:"rename_interval"`
	ResolveTimeout     time.Duration `mapstructure:"resolve_timeout"`
	SnapshotMaxAge     time.Duration `mapstructure:"snapshot_max_age"`
	PlaceholderPrefix  string        `mapstructure:"placeholder_prefix"`
	Debug              bool          `mapstructure:"debug"`
}

// CameraConfig configures the zbarcam capture used by cmd/scanner
type CameraConfig struct {
	Binary string `mapstructure:"binary"`
	Device string `mapstructure:"device"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pantrylens/")

	// PANTRYLENS_SCAN_RENAME_TIMEOUT -> scan.rename_timeout
	v.SetEnvPrefix("PANTRYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key is registered
// here so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200"})

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.language", "de")
	v.SetDefault("openfoodfacts.user_agent", "PantryLens/1.0")
	v.SetDefault("openfoodfacts.rate_per_second", 100.0/60.0)
	v.SetDefault("openfoodfacts.burst", 5)

	v.SetDefault("upcitemdb.enabled", false)
	v.SetDefault("upcitemdb.base_url", "https://api.upcitemdb.com")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.path", "./data/names.db")

	v.SetDefault("scan.stability_threshold", 2)
	v.SetDefault("scan.rename_timeout", "2500ms")
	v.SetDefault("scan.rename_interval", "120ms")
	v.SetDefault("scan.resolve_timeout", "20s")
	v.SetDefault("scan.snapshot_max_age", "30s")
	v.SetDefault("scan.placeholder_prefix", "Produkt")
	v.SetDefault("scan.debug", false)

	v.SetDefault("camera.binary", "zbarcam")
	v.SetDefault("camera.device", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required (set PANTRYLENS_BACKEND_BASE_URL)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "sqlite" {
		return fmt.Errorf("cache type must be 'memory' or 'sqlite', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "sqlite" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'sqlite'")
	}

	if config.Scan.StabilityThreshold < 1 {
		return fmt.Errorf("scan stability threshold must be at least 1, got: %d", config.Scan.StabilityThreshold)
	}

	if config.Scan.RenameInterval <= 0 || config.Scan.RenameTimeout < config.Scan.RenameInterval {
		return fmt.Errorf("scan rename timeout (%s) must be >= rename interval (%s) > 0",
			config.Scan.RenameTimeout, config.Scan.RenameInterval)
	}

	return nil
}
