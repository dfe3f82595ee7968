package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/fbind/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "fbind.json"

	// DefaultPrefix marks kind[:property] directives.
	DefaultPrefix = "f-"

	// DefaultEventMarker marks event directives.
	DefaultEventMarker = "@"

	// DefaultBindMarker marks property binding directives.
	DefaultBindMarker = ":"

	// DefaultPort is the default preview server port.
	DefaultPort = 4000

	// DefaultHost is the default preview server host.
	DefaultHost = "localhost"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// Config represents the complete fbind.json configuration.
type Config struct {
	// Directives controls attribute classification.
	Directives DirectivesConfig `json:"directives,omitempty"`

	// Log controls structured logging.
	Log LogConfig `json:"log,omitempty"`

	// Serve contains preview server configuration.
	Serve ServeConfig `json:"serve,omitempty"`

	// S3 configures the s3:// template and scope loader.
	S3 S3Config `json:"s3,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DirectivesConfig contains directive syntax settings.
type DirectivesConfig struct {
	// Prefix marks kind[:property] directives (default "f-").
	Prefix string `json:"prefix,omitempty"`

	// EventMarker marks event directives (default "@").
	EventMarker string `json:"eventMarker,omitempty"`

	// BindMarker marks property bindings (default ":").
	BindMarker string `json:"bindMarker,omitempty"`

	// StripAllAttributes removes every attribute of a compiled element,
	// not only the directive ones.
	StripAllAttributes bool `json:"stripAllAttributes,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`
}

// ServeConfig contains preview server settings.
type ServeConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Watch reloads the template when its file changes.
	Watch bool `json:"watch,omitempty"`

	// Metrics exposes /metrics.
	Metrics bool `json:"metrics,omitempty"`
}

// S3Config configures access to templates stored in S3.
type S3Config struct {
	// Region is the AWS region. Falls back to AWS_REGION.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (S3-compatible stores).
	Endpoint string `json:"endpoint,omitempty"`

	// UsePathStyle forces path-style addressing.
	UsePathStyle bool `json:"usePathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Directives: DirectivesConfig{
			Prefix:      DefaultPrefix,
			EventMarker: DefaultEventMarker,
			BindMarker:  DefaultBindMarker,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Serve: ServeConfig{
			Host:    DefaultHost,
			Port:    DefaultPort,
			Watch:   true,
			Metrics: true,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for fbind.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S200").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("C100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C100").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromWorkingDir loads fbind.json from the current directory.
// A missing file yields the defaults.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.New("C100").Wrap(err)
	}
	cfg, err := Load(wd)
	if err != nil {
		if errors.CodeOf(err) == "S200" {
			return New(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("C100").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C100").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Directives.Prefix == "" {
		c.Directives.Prefix = DefaultPrefix
	}
	if c.Directives.EventMarker == "" {
		c.Directives.EventMarker = DefaultEventMarker
	}
	if c.Directives.BindMarker == "" {
		c.Directives.BindMarker = DefaultBindMarker
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.S3.Region == "" {
		c.S3.Region = os.Getenv("AWS_REGION")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return errors.New("C101").
			WithDetail("serve.port must be between 0 and 65535")
	}
	d := c.Directives
	if d.EventMarker == d.BindMarker {
		return errors.New("C101").
			WithDetail("directives.eventMarker and directives.bindMarker must differ")
	}
	if strings.HasPrefix(d.Prefix, d.EventMarker) || strings.HasPrefix(d.Prefix, d.BindMarker) {
		return errors.New("C101").
			WithDetailf("directives.prefix %q collides with an event or bind marker", d.Prefix)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ServeAddress returns the address string for the preview server.
func (c *Config) ServeAddress() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.New("C101").
		WithDetailf("unknown log level %q", name)
}
