package telemetry

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/petespantry/storefront/internal/config"
)

// ConfigureLogging sets the global logrus level and formatter. LOG_FORMAT
// overrides the default of JSON in production and text elsewhere.
func ConfigureLogging(cfg config.LogConfig, production bool) {
	logrus.SetOutput(os.Stdout)

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "text"
		if production {
			format = "json"
		}
	}

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
