// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp" yaml:"whatsapp"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig describes how the single Chrome session is launched.
type BrowserConfig struct {
	// Headless is a tri-state: "auto" (headless when no display is attached),
	// "on", or "off".
	Headless string `mapstructure:"headless" yaml:"headless"`
	// Binary overrides browser executable resolution when non-empty.
	Binary     string   `mapstructure:"binary" yaml:"binary"`
	ProfileDir string   `mapstructure:"profile_dir" yaml:"profile_dir"`
	UserAgent  string   `mapstructure:"user_agent" yaml:"user_agent"`
	ExtraFlags []string `mapstructure:"extra_flags" yaml:"extra_flags"`
	// LivenessTimeout bounds the no-op probe used to verify an existing session.
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout" yaml:"liveness_timeout"`
	StartupTimeout  time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
}

// WhatsAppConfig holds the web client surface parameters.
type WhatsAppConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	LoginTimeout      time.Duration `mapstructure:"login_timeout" yaml:"login_timeout"`
	ComposeTimeout    time.Duration `mapstructure:"compose_timeout" yaml:"compose_timeout"`
	SendTimeout       time.Duration `mapstructure:"send_timeout" yaml:"send_timeout"`
	AttachSendTimeout time.Duration `mapstructure:"attach_send_timeout" yaml:"attach_send_timeout"`
}

// DispatchConfig holds composition and pacing parameters.
type DispatchConfig struct {
	DefaultCountryCode string        `mapstructure:"default_country_code" yaml:"default_country_code"`
	MinInterval        time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	MaxInterval        time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	// IntervalFloor is the hard lower bound applied to both interval ends.
	IntervalFloor   time.Duration `mapstructure:"interval_floor" yaml:"interval_floor"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
}

// HeadlessDecision resolves the tri-state headless setting against the
// environment. On non-Windows hosts "auto" means headless whenever no DISPLAY
// is attached; Windows always has a display server.
func (b BrowserConfig) HeadlessDecision() bool {
	switch b.Headless {
	case "on":
		return true
	case "off":
		return false
	default:
		if runtime.GOOS == "windows" {
			return false
		}
		return os.Getenv("DISPLAY") == ""
	}
}

// ResolveProfileDir returns the configured profile directory, defaulting to a
// fixed directory under the user's home. The directory is created if missing.
func (b BrowserConfig) ResolveProfileDir() (string, error) {
	dir := b.ProfileDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory for browser profile: %w", err)
		}
		dir = filepath.Join(home, "DispatcherWhatsAppProfile")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create browser profile directory %q: %w", dir, err)
	}
	return dir, nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:5000")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_upload_bytes", 64<<20)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dispatcher")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", "auto")
	v.SetDefault("browser.binary", "")
	v.SetDefault("browser.profile_dir", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.extra_flags", []string{})
	v.SetDefault("browser.liveness_timeout", "5s")
	v.SetDefault("browser.startup_timeout", "60s")

	// -- WhatsApp --
	v.SetDefault("whatsapp.base_url", "https://web.whatsapp.com")
	v.SetDefault("whatsapp.login_timeout", "20s")
	v.SetDefault("whatsapp.compose_timeout", "20s")
	v.SetDefault("whatsapp.send_timeout", "15s")
	v.SetDefault("whatsapp.attach_send_timeout", "30s")

	// -- Dispatch --
	v.SetDefault("dispatch.default_country_code", "57")
	v.SetDefault("dispatch.min_interval", "1s")
	v.SetDefault("dispatch.max_interval", "2s")
	v.SetDefault("dispatch.interval_floor", "500ms")
	v.SetDefault("dispatch.download_timeout", "30s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot possibly work.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.WhatsApp.BaseURL == "" {
		return fmt.Errorf("whatsapp.base_url must not be empty")
	}
	switch c.Browser.Headless {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("browser.headless must be one of auto, on, off (got %q)", c.Browser.Headless)
	}
	if c.Dispatch.DefaultCountryCode == "" {
		return fmt.Errorf("dispatch.default_country_code must not be empty")
	}
	if c.Dispatch.IntervalFloor < 0 {
		return fmt.Errorf("dispatch.interval_floor must not be negative")
	}
	return nil
}
