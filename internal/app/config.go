package app

import (
	"io"

	"github.com/Zipties/toolarr/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// JSONLogs switches the log handler to JSON output
	JSONLogs bool

	// Custom configuration path (optional)
	// When empty, ~/.config/toolarr is used
	ConfigPath string

	// Version is reported by the health endpoint and MCP initialize
	Version string

	// LogOutput defaults to stdout
	LogOutput io.Writer

	// Loaded toolarr configuration
	ToolarrConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug, jsonLogs bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		JSONLogs:   jsonLogs,
		ConfigPath: configPath,
		Version:    version,
	}
}
