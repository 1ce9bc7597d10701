package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Loader handles loading configuration from multiple sources
type Loader struct {
	config     *Config
	configFile string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		config:     NewConfig(),
		configFile: os.Getenv("TODO_CONFIG"),
	}
}

// WithConfigFile sets an explicit YAML configuration file
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Load loads configuration using the cascading strategy:
// 1. Start with defaults
// 2. Override with the optional configuration file
// 3. Override with environment variables
// 4. Override with command line flags (handled by cobra)
func (l *Loader) Load() (*Config, error) {
	if l.configFile != "" {
		if err := l.config.LoadFromFile(l.configFile); err != nil {
			return nil, err
		}
	}

	if err := l.config.LoadFromEnvironment(); err != nil {
		return nil, err
	}

	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	return l.config, nil
}

// LoadWithOverrides loads configuration and applies command line overrides
func (l *Loader) LoadWithOverrides(overrides *ConfigOverrides) (*Config, error) {
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		ApplyOverrides(config, overrides)
	}

	// Re-validate after applying overrides
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile reads a YAML (or any viper-supported) configuration file.
// Keys mirror the struct sections, e.g. cache.dir or remote.base_url.
func (c *Config) LoadFromFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	setString(v, "cache.dir", &c.Cache.Dir)
	setString(v, "cache.filename", &c.Cache.Filename)
	setDuration(v, "cache.query_timeout", &c.Cache.QueryTimeout)
	setInt(v, "cache.memory_entries", &c.Cache.MemoryEntries)

	setString(v, "remote.base_url", &c.Remote.BaseURL)
	setDuration(v, "remote.timeout", &c.Remote.Timeout)

	setString(v, "connectivity.health_url", &c.Connectivity.HealthURL)
	setDuration(v, "connectivity.health_timeout", &c.Connectivity.HealthTimeout)
	setDuration(v, "connectivity.poll_interval", &c.Connectivity.PollInterval)
	setBool(v, "connectivity.force_offline", &c.Connectivity.ForceOffline)

	setBool(v, "sync.auto_sync", &c.Sync.AutoSync)

	setInt(v, "validation.title_min_length", &c.Validation.TitleMinLength)
	setInt(v, "validation.title_max_length", &c.Validation.TitleMaxLength)
	setInt(v, "validation.description_max_length", &c.Validation.DescriptionMaxLength)

	setString(v, "logging.level", &c.Logging.Level)
	setString(v, "logging.file", &c.Logging.File)
	setInt(v, "logging.max_size_mb", &c.Logging.MaxSizeMB)
	setInt(v, "logging.max_backups", &c.Logging.MaxBackups)
	setInt(v, "logging.max_age_days", &c.Logging.MaxAgeDays)
	setBool(v, "logging.json", &c.Logging.JSON)

	setDuration(v, "application.timeout", &c.Application.Timeout)
	setBool(v, "application.verbose", &c.Application.Verbose)

	setString(v, "server.addr", &c.Server.Addr)
	setString(v, "server.database_url", &c.Server.DatabaseURL)
	setString(v, "server.data_dir", &c.Server.DataDir)
	setString(v, "server.public_url", &c.Server.PublicURL)
	setString(v, "server.jwt_secret", &c.Server.JWTSecret)
	setDuration(v, "server.token_ttl", &c.Server.TokenTTL)
	if v.IsSet("server.max_upload_bytes") {
		c.Server.MaxUpload = v.GetInt64("server.max_upload_bytes")
	}

	return nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}

// ConfigOverrides holds command line flag overrides
type ConfigOverrides struct {
	CacheDir      *string
	CacheFilename *string
	RemoteURL     *string
	RemoteTimeout *time.Duration
	Offline       *bool
	AutoSync      *bool
	LogLevel      *string
	LogFile       *string
	Timeout       *time.Duration
	Verbose       *bool
}

// ApplyOverrides applies command line overrides to the configuration
func ApplyOverrides(config *Config, overrides *ConfigOverrides) {
	if overrides.CacheDir != nil {
		config.Cache.Dir = *overrides.CacheDir
	}
	if overrides.CacheFilename != nil {
		config.Cache.Filename = *overrides.CacheFilename
	}
	if overrides.RemoteURL != nil {
		config.Remote.BaseURL = *overrides.RemoteURL
	}
	if overrides.RemoteTimeout != nil {
		config.Remote.Timeout = *overrides.RemoteTimeout
	}
	if overrides.Offline != nil {
		config.Connectivity.ForceOffline = *overrides.Offline
	}
	if overrides.AutoSync != nil {
		config.Sync.AutoSync = *overrides.AutoSync
	}
	if overrides.LogLevel != nil {
		config.Logging.Level = *overrides.LogLevel
	}
	if overrides.LogFile != nil {
		config.Logging.File = *overrides.LogFile
	}
	if overrides.Timeout != nil {
		config.Application.Timeout = *overrides.Timeout
	}
	if overrides.Verbose != nil {
		config.Application.Verbose = *overrides.Verbose
	}
}

// ParseDurationWithFallback parses a duration string with a fallback value
func ParseDurationWithFallback(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

// ParseIntWithFallback parses an integer string with a fallback value
func ParseIntWithFallback(s string, fallback int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return fallback
}

// ParseBoolWithFallback parses a boolean string with a fallback value
func ParseBoolWithFallback(s string, fallback bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return fallback
}

// ParseUint32WithFallback parses a uint32 string with a fallback value
func ParseUint32WithFallback(s string, base int, fallback uint32) uint32 {
	if u, err := strconv.ParseUint(s, base, 32); err == nil {
		return uint32(u)
	}
	return fallback
}
