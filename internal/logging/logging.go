// Package logging builds the process logger from configuration
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"netviz/internal/config"
)

// New returns a logger writing to stderr with the configured level and format
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit destination
func NewWithOutput(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	logger := logrus.New()
	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetOutput(out)
	logger.SetLevel(level)

	return logger, nil
}
