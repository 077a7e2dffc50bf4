package config

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/tendril/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "tendril.yaml"

	// DefaultAddr is the default preview server address.
	DefaultAddr = "localhost:3000"

	// DefaultFetchTimeout bounds every fetch and include request.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultNamespace is the Prometheus namespace.
	DefaultNamespace = "tendril"

	// DefaultRedisPrefix prefixes every key of the Redis local store.
	DefaultRedisPrefix = "tendril:local:"
)

// Store kinds accepted by stores.local.kind.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config represents the complete tendril.yaml configuration.
type Config struct {
	// BaseURL resolves relative fetch URLs. When empty, relative URLs are
	// served from Root.
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Root is the directory serving relative fetches (default: the
	// document's directory).
	Root string `yaml:"root,omitempty" mapstructure:"root"`

	// Fetch contains request settings.
	Fetch FetchConfig `yaml:"fetch" mapstructure:"fetch"`

	// Stores contains the persisted variable stores.
	Stores StoresConfig `yaml:"stores" mapstructure:"stores"`

	// Log contains logging settings.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Serve contains preview server settings.
	Serve ServeConfig `yaml:"serve" mapstructure:"serve"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// FetchConfig contains request settings.
type FetchConfig struct {
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoresConfig contains the persisted variable stores.
type StoresConfig struct {
	// Local configures the durable local store.
	Local LocalStoreConfig `yaml:"local" mapstructure:"local"`
}

// LocalStoreConfig configures the durable local store.
type LocalStoreConfig struct {
	// Kind is memory, file or redis.
	Kind string `yaml:"kind" mapstructure:"kind"`

	// Path is the JSON file used by the file kind.
	Path string `yaml:"path,omitempty" mapstructure:"path"`

	// Redis configures the redis kind.
	Redis RedisConfig `yaml:"redis,omitempty" mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty" mapstructure:"addr"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" mapstructure:"level"`

	// File enables rotated file logging when set.
	File string `yaml:"file,omitempty" mapstructure:"file"`

	// MaxSize is the size in megabytes before rotation.
	MaxSize int `yaml:"max_size,omitempty" mapstructure:"max_size"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `yaml:"max_backups,omitempty" mapstructure:"max_backups"`

	// MaxAge is the number of days rotated files are kept.
	MaxAge int `yaml:"max_age,omitempty" mapstructure:"max_age"`

	// Compress gzips rotated files.
	Compress bool `yaml:"compress,omitempty" mapstructure:"compress"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// ServeConfig contains preview server settings.
type ServeConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Default creates a new Config with default values.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{Timeout: DefaultFetchTimeout},
		Stores: StoresConfig{
			Local: LocalStoreConfig{Kind: StoreMemory},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Metrics: MetricsConfig{Namespace: DefaultNamespace},
		Serve:   ServeConfig{Addr: DefaultAddr},
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrConfigNotFound).
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'tendril config init' to create one")
		}
		return nil, errors.New(errors.ErrConfigNotFound).Wrap(err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.New(errors.ErrConfigInvalid).
			WithDetail("Failed to parse configuration: " + err.Error()).
			WithSuggestion("Check that the file is valid YAML and uses known keys")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.New(errors.ErrConfigWrite).Wrap(err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.New(errors.ErrConfigWrite).Wrap(err)
	}
	return buf.Bytes(), nil
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.New(errors.ErrConfigWrite).Wrap(err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.ErrConfigWrite).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from or saved to.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills zero values left by a partial file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = def.Fetch.Timeout
	}
	if c.Stores.Local.Kind == "" {
		c.Stores.Local.Kind = def.Stores.Local.Kind
	}
	c.Stores.Local.Kind = strings.ToLower(c.Stores.Local.Kind)
	if c.Stores.Local.Kind == StoreRedis && c.Stores.Local.Redis.Prefix == "" {
		c.Stores.Local.Redis.Prefix = DefaultRedisPrefix
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = def.Serve.Addr
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New(errors.ErrConfigInvalid).
				WithDetailf("base_url %q must be an absolute URL", c.BaseURL)
		}
	}
	if c.Fetch.Timeout < 0 {
		return errors.New(errors.ErrConfigInvalid).
			WithDetail("fetch.timeout must not be negative")
	}

	switch c.Stores.Local.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Stores.Local.Path == "" {
			return errors.New(errors.ErrConfigInvalid).
				WithDetail("stores.local.path is required for the file store")
		}
	case StoreRedis:
		if c.Stores.Local.Redis.Addr == "" {
			return errors.New(errors.ErrConfigInvalid).
				WithDetail("stores.local.redis.addr is required for the redis store")
		}
	default:
		return errors.New(errors.ErrConfigUnsupported).
			WithDetailf("Unknown store kind %q", c.Stores.Local.Kind)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New(errors.ErrConfigInvalid).
			WithDetailf("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return errors.New(errors.ErrConfigInvalid).
			WithDetail("log rotation settings must not be negative")
	}
	return nil
}

// Exists checks if a tendril.yaml exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
