package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("searchkit version %s, commit %s, built at %s", version, commit, date)
}

// Version returns the bare build version.
func Version() string {
	return version
}

// DefaultUserAgent is sent when no user_agent is configured.
func DefaultUserAgent() string {
	return "Algolia for Go " + version
}

const (
	ProtocolHTTPS = "https:"
	ProtocolHTTP  = "http:"

	// DefaultTimeoutMS is a global deadline, socket activity does not extend it.
	DefaultTimeoutMS = 30 * 1000
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Endpoint EndpointConfig `mapstructure:"endpoint"`
	AppEnv   string         `mapstructure:"app_env"`
	// Debug replaces the APP_ENV=development switch and forces debug logs.
	Debug bool `mapstructure:"debug"`
}

type EndpointConfig struct {
	AppID     string            `json:"app_id" mapstructure:"app_id"`
	APIKey    string            `json:"api_key" mapstructure:"api_key"`
	Protocol  string            `json:"protocol" mapstructure:"protocol"`
	Hosts     []string          `json:"hosts" mapstructure:"hosts"`
	TimeoutMS int               `json:"timeout_ms" mapstructure:"timeout_ms"`
	UserAgent string            `json:"user_agent" mapstructure:"user_agent"`
	Headers   map[string]string `json:"headers" mapstructure:"headers"`
}

// Timeout returns the configured per-request deadline.
func (e EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// Host returns the first configured host. Spreading calls over the other
// hosts belongs to the caller.
func (e EndpointConfig) Host() string {
	if len(e.Hosts) == 0 {
		return ""
	}
	return e.Hosts[0]
}

type ServerMode string

const (
	ServerModeSSE   ServerMode = "sse"
	ServerModeSTDIO ServerMode = "stdio"
	ServerModeHTTP  ServerMode = "http"
)

type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Mode    ServerMode `mapstructure:"mode"`
	Name    string     `mapstructure:"name"`
	Version string     `mapstructure:"version"`
	// OpenAPIFile adds one tool per API operation next to the built-in tools.
	OpenAPIFile   string `mapstructure:"openapi_file"`
	SelectionFile string `mapstructure:"selection_file"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// ErrMissingCredentials is returned when app_id or api_key is not configured.
var ErrMissingCredentials = errors.New("app_id and api_key are required")

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("mode", string(ServerModeSTDIO), "Server mode (stdio|sse|http)")
	fs.String("app-id", "", "Application ID")
	fs.String("api-key", "", "API key")
	fs.Int("timeout-ms", DefaultTimeoutMS, "Per-request timeout in milliseconds")
	fs.String("protocol", ProtocolHTTPS, "Protocol used to reach the hosts (https:|http:)")
	fs.Bool("debug", false, "Enable debug logging")
	fs.String("openapi-file", "", "OpenAPI document whose operations are served as tools")
	fs.String("selection-file", "", "YAML file selecting which operations to serve")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint.protocol", ProtocolHTTPS)
	v.SetDefault("endpoint.timeout_ms", DefaultTimeoutMS)
	v.SetDefault("app_env", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("server.mode", string(ServerModeSTDIO))
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.name", "searchkit")
	v.SetDefault("server.version", version)
}

// Load reads configuration from .env, config.yaml, SEARCHKIT_* environment
// variables and the given flag set (nil is allowed). The config file is optional.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SEARCHKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/searchkit")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		bindFlag(v, fs, "endpoint.app_id", "app-id")
		bindFlag(v, fs, "endpoint.api_key", "api-key")
		bindFlag(v, fs, "endpoint.timeout_ms", "timeout-ms")
		bindFlag(v, fs, "endpoint.protocol", "protocol")
		bindFlag(v, fs, "server.mode", "mode")
		bindFlag(v, fs, "debug", "debug")
		bindFlag(v, fs, "server.openapi_file", "openapi-file")
		bindFlag(v, fs, "server.selection_file", "selection-file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// AutomaticEnv does not reach keys unknown to Unmarshal's defaults.
	if cfg.Endpoint.AppID == "" {
		cfg.Endpoint.AppID = v.GetString("endpoint.app_id")
	}
	if cfg.Endpoint.APIKey == "" {
		cfg.Endpoint.APIKey = v.GetString("endpoint.api_key")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, name string) {
	if f := fs.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// Normalize applies construction defaults and validates the result.
func (c *Config) Normalize() error {
	e := &c.Endpoint
	if e.Protocol == "" {
		e.Protocol = ProtocolHTTPS
	}
	if e.Protocol != ProtocolHTTPS && e.Protocol != ProtocolHTTP {
		return fmt.Errorf("invalid protocol %q (must be %q or %q)", e.Protocol, ProtocolHTTPS, ProtocolHTTP)
	}
	if e.TimeoutMS == 0 {
		e.TimeoutMS = DefaultTimeoutMS
	}
	if e.TimeoutMS < 0 {
		return fmt.Errorf("invalid timeout_ms %d (must be positive milliseconds)", e.TimeoutMS)
	}
	if e.UserAgent == "" {
		e.UserAgent = DefaultUserAgent()
	}
	if len(e.Hosts) == 0 && e.AppID != "" {
		e.Hosts = []string{e.AppID + "-dsn.algolia.net"}
	}

	switch c.Server.Mode {
	case "", ServerModeSTDIO, ServerModeSSE, ServerModeHTTP:
	default:
		return fmt.Errorf("unsupported server mode: %s", c.Server.Mode)
	}
	if c.Server.Mode == "" {
		c.Server.Mode = ServerModeSTDIO
	}

	if c.AppEnv == "development" {
		c.Debug = true
	}
	if c.Debug {
		c.Logging.Level = "debug"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

// RequireCredentials reports ErrMissingCredentials when the endpoint cannot
// authenticate.
func (c *Config) RequireCredentials() error {
	if c.Endpoint.AppID == "" || c.Endpoint.APIKey == "" {
		return ErrMissingCredentials
	}
	return nil
}
