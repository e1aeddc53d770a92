package app

import (
	"strings"

	"github.com/charlesng35/quizapi/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server settings, defaulting to
// info level JSON output.
func ConfigureLogging(server ServerConfig) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(server.LogFormat)
	if format == "" {
		format = "json"
	}
	return logger.Init(level, format)
}
