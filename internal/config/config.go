package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCyclesURL is the VISTA signal phase and timing endpoint
	DefaultCyclesURL = "https://hcub010205.execute-api.us-east-2.amazonaws.com/vista/spat"
	// DefaultTrafficURL is the VISTA detector trigger endpoint
	DefaultTrafficURL = "https://hcub010205.execute-api.us-east-2.amazonaws.com/vista/traffic"

	// EnvPrefix prefixes environment overrides, e.g. PURDUEPLOT_OUT_DIR
	EnvPrefix = "PURDUEPLOT"
)

// Config holds the application configuration
type Config struct {
	CyclesURL      string        `yaml:"cycles_url" mapstructure:"cycles_url"`
	TrafficURL     string        `yaml:"traffic_url" mapstructure:"traffic_url"`
	OutDir         string        `yaml:"out_dir" mapstructure:"out_dir"`
	HourLag        int           `yaml:"hour_lag" mapstructure:"hour_lag"` // Hours behind UTC now to request
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	LogLevel       string        `yaml:"log_level" mapstructure:"log_level"`
	MetricsAddr    string        `yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"` // e.g. ":9000", empty disables
	Archive        bool          `yaml:"archive" mapstructure:"archive"`                     // Keep snapshot history in SQLite
	MQTT           MQTTConfig    `yaml:"mqtt,omitempty" mapstructure:"mqtt"`
	S3             S3Config      `yaml:"s3,omitempty" mapstructure:"s3"`
	Redis          RedisConfig   `yaml:"redis,omitempty" mapstructure:"redis"`
}

// MQTTConfig holds MQTT broker configuration for snapshot announcements
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker      string `yaml:"broker" mapstructure:"broker"` // host:port
	Username    string `yaml:"username,omitempty" mapstructure:"username"`
	Password    string `yaml:"password,omitempty" mapstructure:"password"`
	TopicPrefix string `yaml:"topic_prefix,omitempty" mapstructure:"topic_prefix"`
}

// S3Config holds the bucket the CSV files are mirrored to
type S3Config struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Region  string `yaml:"region" mapstructure:"region"`
	Bucket  string `yaml:"bucket" mapstructure:"bucket"`
	Prefix  string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// RedisConfig holds the cache the latest snapshot is stored in
type RedisConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Addr    string        `yaml:"addr" mapstructure:"addr"`
	DB      int           `yaml:"db" mapstructure:"db"`
	TTL     time.Duration `yaml:"ttl,omitempty" mapstructure:"ttl"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		CyclesURL:      DefaultCyclesURL,
		TrafficURL:     DefaultTrafficURL,
		OutDir:         "data",
		HourLag:        1,
		Interval:       time.Minute,
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		Archive:        true,
		MQTT:           MQTTConfig{TopicPrefix: "purdueplot"},
		S3:             S3Config{Region: "us-east-2"},
		Redis:          RedisConfig{Addr: "localhost:6379", TTL: 10 * time.Minute},
	}
}

// Load reads the config file, applying defaults and PURDUEPLOT_* environment overrides
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so environment overrides are picked up
// even when the file does not mention them
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("cycles_url", d.CyclesURL)
	v.SetDefault("traffic_url", d.TrafficURL)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("hour_lag", d.HourLag)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("archive", d.Archive)
	v.SetDefault("mqtt.enabled", d.MQTT.Enabled)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)
	v.SetDefault("mqtt.topic_prefix", d.MQTT.TopicPrefix)
	v.SetDefault("s3.enabled", d.S3.Enabled)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.prefix", d.S3.Prefix)
	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetOutDir returns the CSV output directory with a default of ./data
func (c *Config) GetOutDir() string {
	if c.OutDir == "" {
		return "data"
	}
	return c.OutDir
}

// GetHourLag returns how many hours behind real time data is requested; negative values clamp to 0
func (c *Config) GetHourLag() int {
	if c.HourLag < 0 {
		return 0
	}
	return c.HourLag
}

// GetInterval returns the polling interval with a default of one minute
func (c *Config) GetInterval() time.Duration {
	if c.Interval <= 0 {
		return time.Minute
	}
	return c.Interval
}

// GetRequestTimeout returns the HTTP timeout with a default of 30 seconds
func (c *Config) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return c.RequestTimeout
}

// GetRedisTTL returns how long the cached snapshot lives with a default of 10 minutes
func (c *Config) GetRedisTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 10 * time.Minute
	}
	return c.Redis.TTL
}
