// File: internal/config/config_test.go
package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("portal.base_url", "https://portal.example/panel")
	return v
}

func TestNewConfigFromViper(t *testing.T) {
	v := newTestViper()

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example/panel", cfg.Portal.BaseURL)
	// Login URL defaults to the base URL.
	assert.Equal(t, cfg.Portal.BaseURL, cfg.Portal.LoginURL)
	assert.True(t, cfg.Browser.Headless)
	assert.NotEmpty(t, cfg.Storage.Dir, "storage dir must default under the home directory")
}

func TestValidateRequiresBaseURL(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	// The message must tell the operator how to fix it.
	assert.Contains(t, err.Error(), "BILLHAWK_PORTAL_BASE_URL")
}

func TestValidateTimeouts(t *testing.T) {
	v := newTestViper()
	v.Set("network.navigation_timeout", "0s")

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "navigation_timeout")
}

func TestValidateCredentials(t *testing.T) {
	cfg := NewDefaultConfig()

	err := cfg.ValidateCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BILLHAWK_PORTAL_USERNAME")

	cfg.Portal.Username = "user"
	cfg.Portal.Password = "pass"
	assert.NoError(t, cfg.ValidateCredentials())
}

func TestEnvBindings(t *testing.T) {
	t.Setenv("BILLHAWK_PORTAL_USERNAME", "env-user")
	t.Setenv("BILLHAWK_PORTAL_PASSWORD", "env-pass")
	t.Setenv("BILLHAWK_BROWSER_PATH", "/usr/bin/chromium")

	cfg, err := NewConfigFromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.Portal.Username)
	assert.Equal(t, "env-pass", cfg.Portal.Password)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ExecPath)
}
