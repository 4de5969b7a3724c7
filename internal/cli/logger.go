package cli

import (
	"github.com/glorpus-work/opendata/internal/logger"
	"github.com/glorpus-work/opendata/pkg/config"
)

// InitLogger initializes the global logger from the effective configuration.
// Logs always go to stderr; JSON output also switches log records to JSON.
func InitLogger(cfg *config.Config) {
	format := logger.FormatText
	if cfg.Settings.OutputFormat == "json" {
		format = logger.FormatJSON
	}
	logger.InitLogger(cfg.Settings.LogLevel, format)
}
