package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/glorpus-work/opendata/pkg/errutils"
)

// Keys lists the configuration keys accepted by SetValue and GetValue.
var Keys = []string{
	"server",
	"protocol",
	"engine",
	"retry_limit",
	"retry_sleep",
	"http_timeout",
	"catalog_timeout",
	"list_timeout",
	"error_page.size",
	"error_page.checksum",
	"output_format",
	"log_level",
}

// SetValue sets a configuration value by key and validates the result.
// Durations use time.ParseDuration syntax ("5s", "1m30s").
func (c *Config) SetValue(key, value string) error {
	next := *c
	s := &next.Settings

	var err error
	switch key {
	case "server":
		s.Server = value
	case "protocol":
		s.Protocol = value
	case "engine":
		s.Engine = value
	case "retry_limit":
		s.RetryLimit, err = strconv.Atoi(value)
	case "retry_sleep":
		s.RetrySleep, err = time.ParseDuration(value)
	case "http_timeout":
		s.HTTPTimeout, err = time.ParseDuration(value)
	case "catalog_timeout":
		s.CatalogTimeout, err = time.ParseDuration(value)
	case "list_timeout":
		s.ListTimeout, err = time.ParseDuration(value)
	case "error_page.size":
		s.ErrorPage.Size, err = strconv.ParseInt(value, 10, 64)
	case "error_page.checksum":
		s.ErrorPage.Checksum = value
	case "output_format":
		s.OutputFormat = value
	case "log_level":
		s.LogLevel = value
	default:
		return fmt.Errorf("%w: %s", errutils.ErrUnknownConfigKey, key)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, errutils.ErrConfigValidation)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// GetValue returns a configuration value by key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s := c.Settings
	switch key {
	case "server":
		return s.Server, nil
	case "protocol":
		return s.Protocol, nil
	case "engine":
		return s.Engine, nil
	case "retry_limit":
		return strconv.Itoa(s.RetryLimit), nil
	case "retry_sleep":
		return s.RetrySleep.String(), nil
	case "http_timeout":
		return s.HTTPTimeout.String(), nil
	case "catalog_timeout":
		return s.CatalogTimeout.String(), nil
	case "list_timeout":
		return s.ListTimeout.String(), nil
	case "error_page.size":
		return strconv.FormatInt(s.ErrorPage.Size, 10), nil
	case "error_page.checksum":
		return s.ErrorPage.Checksum, nil
	case "output_format":
		return s.OutputFormat, nil
	case "log_level":
		return s.LogLevel, nil
	default:
		return "", fmt.Errorf("%w: %s", errutils.ErrUnknownConfigKey, key)
	}
}

// ToMap returns every setting keyed by its configuration key.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		// every entry of Keys is handled by GetValue
		v, _ := c.GetValue(key)
		result[key] = v
	}
	return result
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
