// File: internal/config/config_test.go
package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1:5000", cfg.Server.ListenAddr)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "auto", cfg.Browser.Headless)
	assert.Equal(t, 5*time.Second, cfg.Browser.LivenessTimeout)
	assert.Equal(t, "https://web.whatsapp.com", cfg.WhatsApp.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.WhatsApp.LoginTimeout)
	assert.Equal(t, 30*time.Second, cfg.WhatsApp.AttachSendTimeout)
	assert.Equal(t, "57", cfg.Dispatch.DefaultCountryCode)
	assert.Equal(t, 1*time.Second, cfg.Dispatch.MinInterval)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.MaxInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.IntervalFloor)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.listen_addr", "0.0.0.0:8080")
	v.Set("dispatch.default_country_code", "34")
	v.Set("whatsapp.login_timeout", "45s")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ListenAddr)
	assert.Equal(t, "34", cfg.Dispatch.DefaultCountryCode)
	assert.Equal(t, 45*time.Second, cfg.WhatsApp.LoginTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"empty base url", func(c *Config) { c.WhatsApp.BaseURL = "" }},
		{"bad headless value", func(c *Config) { c.Browser.Headless = "maybe" }},
		{"empty country code", func(c *Config) { c.Dispatch.DefaultCountryCode = "" }},
		{"negative interval floor", func(c *Config) { c.Dispatch.IntervalFloor = -time.Second }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestHeadlessDecision(t *testing.T) {
	assert.True(t, BrowserConfig{Headless: "on"}.HeadlessDecision())
	assert.False(t, BrowserConfig{Headless: "off"}.HeadlessDecision())

	if runtime.GOOS == "windows" {
		t.Skip("auto mode always has a display server on windows")
	}
	t.Setenv("DISPLAY", "")
	assert.True(t, BrowserConfig{Headless: "auto"}.HeadlessDecision())
	t.Setenv("DISPLAY", ":0")
	assert.False(t, BrowserConfig{Headless: "auto"}.HeadlessDecision())
}

func TestResolveProfileDirCreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/profile"
	got, err := BrowserConfig{ProfileDir: dir}.ResolveProfileDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.DirExists(t, got)
}
