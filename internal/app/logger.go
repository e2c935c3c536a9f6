package app

import (
	"strings"

	"github.com/charlesng35/accounts/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level and encoding, defaulting to info/json.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:    level,
		Encoding: format,
		Service:  "accounts",
	})
}
