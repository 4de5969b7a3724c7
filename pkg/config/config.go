// Package config provides configuration management for the opendata client.
// It handles loading, validating and saving the YAML settings file that holds the
// catalog server, the default delivery protocol and download engine, the retry
// policy, timeouts and the fingerprint of the server's error page.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/opendata/pkg/download"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/fsutil"
	"github.com/glorpus-work/opendata/pkg/model"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// ErrorPageConfig is the size and checksum of the body served in place of a file
// when the storage backend fails.
type ErrorPageConfig struct {
	Size     int64  `yaml:"size"`
	Checksum string `yaml:"checksum"`
}

// Settings represents general application settings.
type Settings struct {
	// Catalog settings
	Server         string        `yaml:"server"`
	CatalogTimeout time.Duration `yaml:"catalog_timeout"`

	// Download settings
	Protocol    string          `yaml:"protocol"`         // http, xrootd
	Engine      string          `yaml:"engine,omitempty"` // http, curl, xrootd; empty picks per protocol
	RetryLimit  int             `yaml:"retry_limit"`
	RetrySleep  time.Duration   `yaml:"retry_sleep"`
	HTTPTimeout time.Duration   `yaml:"http_timeout"` // 0 disables the transfer timeout
	ErrorPage   ErrorPageConfig `yaml:"error_page"`

	// Listing settings
	ListTimeout time.Duration `yaml:"list_timeout"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json, yaml
	LogLevel     string `yaml:"log_level"`     // error, warn, info, debug
}

// Default configuration values.
const (
	DefaultServer         = model.ServerHTTPURI
	DefaultProtocol       = string(model.ProtocolHTTP)
	DefaultRetryLimit     = 10
	DefaultRetrySleep     = 5 * time.Second
	DefaultCatalogTimeout = 30 * time.Second
	DefaultListTimeout    = 60 * time.Second

	// DefaultErrorPageChecksum is the checksum of an empty body.
	DefaultErrorPageChecksum = "adler32:00000001"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			Server:         DefaultServer,
			CatalogTimeout: DefaultCatalogTimeout,
			Protocol:       DefaultProtocol,
			RetryLimit:     DefaultRetryLimit,
			RetrySleep:     DefaultRetrySleep,
			ErrorPage:      ErrorPageConfig{Size: 0, Checksum: DefaultErrorPageChecksum},
			ListTimeout:    DefaultListTimeout,
			OutputFormat:   "text",
			LogLevel:       "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errutils.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
// Keys absent from the document keep their default values.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errutils.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigParse, err.Error())
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(afero.NewOsFs(), absPath); err != nil {
		return errutils.Wrap(errutils.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errutils.Wrap(errutils.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errutils.Wrap(errutils.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errutils.Wrap(errutils.ErrConfigFileRename, err.Error())
	}

	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return errutils.Wrap(errutils.ErrConfigFileChmod, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks the configuration and reports every problem found at once.
func (c *Config) Validate() error {
	if c == nil {
		return errutils.ErrConfigValidation
	}

	var errs *multierror.Error
	s := c.Settings

	if err := model.ValidateServer(s.Server); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := model.ParseProtocol(s.Protocol); err != nil {
		errs = multierror.Append(errs, err)
	}
	if s.Engine != "" {
		if _, err := download.CanonicalEngine(s.Engine); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if s.RetryLimit < 0 {
		errs = multierror.Append(errs, errutils.ErrNegativeRetryLimit)
	}
	for name, d := range map[string]time.Duration{
		"retry_sleep":     s.RetrySleep,
		"http_timeout":    s.HTTPTimeout,
		"catalog_timeout": s.CatalogTimeout,
		"list_timeout":    s.ListTimeout,
	} {
		if d < 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, errutils.ErrNegativeDuration))
		}
	}
	if s.ErrorPage.Size < 0 {
		errs = multierror.Append(errs, fmt.Errorf("error_page.size %d cannot be negative", s.ErrorPage.Size))
	}
	if s.ErrorPage.Checksum != "" && !strings.HasPrefix(s.ErrorPage.Checksum, "adler32:") {
		errs = multierror.Append(errs, fmt.Errorf("error_page.checksum %q must start with adler32:", s.ErrorPage.Checksum))
	}

	validFormats := map[string]bool{"text": true, "json": true, "yaml": true}
	if !validFormats[s.OutputFormat] {
		errs = multierror.Append(errs, errutils.ErrInvalidOutputFormatWithDetails(s.OutputFormat))
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		errs = multierror.Append(errs, errutils.ErrInvalidLogLevelWithDetails(s.LogLevel))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", errutils.ErrConfigValidation, err)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// applyDefaults fills in values a config file explicitly left empty.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.Server == "" {
		c.Settings.Server = defaults.Settings.Server
	}
	if c.Settings.Protocol == "" {
		c.Settings.Protocol = defaults.Settings.Protocol
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.ErrorPage.Checksum == "" {
		c.Settings.ErrorPage.Checksum = defaults.Settings.ErrorPage.Checksum
	}
}
