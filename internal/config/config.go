// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the shared headless browser instance.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath selects a specific Chrome/Chromium binary. Empty means
	// chromedp's bundled lookup order. Override with BILLHAWK_BROWSER_PATH
	// on constrained deployments (e.g. a distro chromium in a container).
	ExecPath        string   `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes navigation and download timeouts.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	DownloadTimeout   time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
}

// PortalConfig identifies the supplier portal and the credential pair.
type PortalConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	LoginURL string `mapstructure:"login_url" yaml:"login_url"`
	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`
}

// StorageConfig locates the durable directory for downloads, the
// session file and diagnostic screenshots.
type StorageConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "billhawk")
	v.SetDefault("logger.log_file", "billhawk.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "45s")
	v.SetDefault("network.download_timeout", "60s")
	v.SetDefault("network.post_load_wait", "2s")
	v.SetDefault("network.request_timeout", "90s")

	// -- Storage --
	v.SetDefault("storage.dir", "")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data and deployment overrides.
	v.BindEnv("portal.base_url", "BILLHAWK_PORTAL_BASE_URL")
	v.BindEnv("portal.login_url", "BILLHAWK_PORTAL_LOGIN_URL")
	v.BindEnv("portal.username", "BILLHAWK_PORTAL_USERNAME")
	v.BindEnv("portal.password", "BILLHAWK_PORTAL_PASSWORD")
	v.BindEnv("browser.exec_path", "BILLHAWK_BROWSER_PATH")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Storage.Dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory for storage.dir: %w", err)
		}
		cfg.Storage.Dir = filepath.Join(home, ".billhawk", "files")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with defaults only.
// Portal URLs and credentials are left empty; Validate on the result
// fails until they are supplied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
// Messages name the config key and the env var so an operator can fix
// the deployment without reading source.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required (set it in config.yaml or BILLHAWK_PORTAL_BASE_URL)")
	}
	if c.Portal.LoginURL == "" {
		// The login page is usually the base URL itself.
		c.Portal.LoginURL = c.Portal.BaseURL
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Network.DownloadTimeout <= 0 {
		return fmt.Errorf("network.download_timeout must be a positive duration")
	}
	return nil
}

// ValidateCredentials checks the credential pair separately from
// Validate: read-only operations (readDocument, listRetrievedFiles)
// work without credentials, so the check runs only where a login can
// actually happen.
func (c *Config) ValidateCredentials() error {
	if c.Portal.Username == "" || c.Portal.Password == "" {
		return fmt.Errorf("portal credentials missing: set BILLHAWK_PORTAL_USERNAME and BILLHAWK_PORTAL_PASSWORD")
	}
	return nil
}
